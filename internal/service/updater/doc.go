// Package updater keeps an installed executable current.
//
// It asks the update server whether a newer release is offered to this
// installation, downloads the artifact, verifies its SHA-256 checksum and
// ECDSA signature, and atomically replaces the target executable. A marker
// file next to the target and a process-table check keep two updaters from
// working on the same installation at once.
package updater
