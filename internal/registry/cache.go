package registry

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/semver"
)

// snapshot is the version-sorted view of one scope's live releases.
type snapshot struct {
	releases []*domain.Release
	versions []semver.Version
}

// snapshotCache is a read-through cache of scope snapshots. A generation
// counter per scope lets a fill that raced a write be dropped.
type snapshotCache struct {
	entries *expirable.LRU[domain.Scope, *snapshot]

	mu          sync.Mutex
	generations map[domain.Scope]uint64
}

func newSnapshotCache(size int, ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		entries:     expirable.NewLRU[domain.Scope, *snapshot](size, nil, ttl),
		generations: make(map[domain.Scope]uint64),
	}
}

// generation returns the current generation of scope.
func (c *snapshotCache) generation(scope domain.Scope) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generations[scope]
}

func (c *snapshotCache) get(scope domain.Scope) (*snapshot, bool) {
	return c.entries.Get(scope)
}

// fill stores snap unless scope was written since generation was read.
func (c *snapshotCache) fill(scope domain.Scope, generation uint64, snap *snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[scope] != generation {
		return
	}

	c.entries.Add(scope, snap)
}

// invalidate drops scope and bumps its generation.
func (c *snapshotCache) invalidate(scope domain.Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[scope]++
	c.entries.Remove(scope)
}
