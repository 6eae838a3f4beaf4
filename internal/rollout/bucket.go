package rollout

import (
	"crypto/sha256"
	"encoding/binary"
)

// BucketCount is the number of rollout buckets; percentages gate on it.
const BucketCount = 100

// BucketFunc assigns a client to a bucket for a release.
type BucketFunc func(clientID, releaseID string) int

// Bucket returns the stable bucket of clientID for releaseID:
//
//	h      = SHA-256(utf8(clientID) || utf8(releaseID))
//	bucket = big-endian uint64(h[0:8]) mod 100
//
// Release ids are canonical lowercase UUID strings. The mapping must never
// change: rollout decisions already served depend on it.
func Bucket(clientID, releaseID string) int {
	hasher := sha256.New()
	hasher.Write([]byte(clientID))
	hasher.Write([]byte(releaseID))

	sum := hasher.Sum(nil)

	return int(binary.BigEndian.Uint64(sum[:8]) % BucketCount)
}
