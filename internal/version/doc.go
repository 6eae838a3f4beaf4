// Package version exposes build metadata shared by the update-server,
// update-client and update-packager binaries.
//
// Version, Commit and BuildTime are injected with -ldflags. Full renders the
// line printed by the `version` subcommand; the client updater parses that
// line from a target executable, so its "version: X," prefix is a contract.
package version
