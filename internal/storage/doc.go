// Package storage implements the artifact Storage Adapter.
//
// Two strategies exist: Local keeps artifacts under a directory that is
// served statically, S3 keeps them in an S3-compatible bucket and hands out
// either public (CDN) URLs or presigned download links. Put streams the
// artifact once and returns its SHA-256 checksum so callers never read an
// upload twice.
package storage
