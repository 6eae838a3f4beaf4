// Package release contains the core domain types of the update server.
//
// It defines applications, channels, platforms, releases, update queries and
// decisions, together with the error taxonomy shared by every layer.
package release
