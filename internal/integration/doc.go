// Package integration runs the update server, client and packager end to end
// against temp-file SQLite and local artifact storage.
package integration
