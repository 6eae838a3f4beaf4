// Package registry is the Release Registry: it stores releases per scope,
// enforces version uniqueness and monotonic promotion, and hands the rollout
// evaluator the releases newer than a client's version.
//
// Writes are serialized per scope within one process. Reads never take the
// scope lock and may be served from an optional read-through cache of scope
// snapshots; every write invalidates its scope in the cache of the registry
// that performed it before returning, so a read on that registry that starts
// after a committed promotion never observes the previous percentage.
//
// The cache is process-local. When several server instances share one
// database, a write on one instance is not seen by the caches of the others:
// they may serve the previous snapshot of the scope for up to the cache TTL
// (rollout.cache_ttl). Disable the cache with rollout.cache_size: 0 when
// cross-instance read-after-write matters.
package registry
