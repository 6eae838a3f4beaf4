// Package config loads the immutable settings of the update-server binaries.
//
// Server holds the backend strategies (database, files, auth), rollout
// parameters and secret references of the server process. It is read once
// from YAML at start-up, validated and passed by value into constructors.
// Secrets never live in the YAML file: it only names the environment
// variables or files that hold them.
//
// Client holds the settings of the update client and is saved back to disk
// after the first run so the generated client id stays stable.
package config
