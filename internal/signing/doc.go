// Package signing produces and checks detached artifact signatures.
//
// Signatures are ECDSA P-256 over the SHA-256 digest of the artifact,
// ASN.1 encoded and then base64 encoded, which is the format go-update's
// ECDSA verifier accepts on the client. Keys are PEM encoded and loaded from
// a file or an environment variable, never from the configuration file.
package signing
