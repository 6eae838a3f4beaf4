// Package packager prepares release artifacts for distribution.
//
// It generates the ECDSA key pair used to sign artifacts and, for a built
// artifact, computes its SHA-256 checksum and detached signature. The result
// is written next to the artifact as a YAML manifest so the values can be
// passed to the admin API when the release is registered.
package packager
