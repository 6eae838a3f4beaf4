package registry

import (
	"iter"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// Candidates is the finite, restartable sequence of releases newer than a
// client's version, ordered by ascending version. Every iteration yields
// fresh copies, so callers cannot alter registry state.
type Candidates struct {
	releases []*domain.Release
}

// NewCandidates builds a sequence from releases already sorted by ascending version.
func NewCandidates(ascending ...*domain.Release) Candidates {
	return Candidates{releases: ascending}
}

// Len is the number of candidates; zero means the client is current.
func (c Candidates) Len() int {
	return len(c.releases)
}

// Ascending yields candidates from oldest to newest.
func (c Candidates) Ascending() iter.Seq[*domain.Release] {
	return func(yield func(*domain.Release) bool) {
		for _, rel := range c.releases {
			if !yield(rel.Clone()) {
				return
			}
		}
	}
}

// Descending yields candidates from newest to oldest.
func (c Candidates) Descending() iter.Seq[*domain.Release] {
	return func(yield func(*domain.Release) bool) {
		for i := len(c.releases) - 1; i >= 0; i-- {
			if !yield(c.releases[i].Clone()) {
				return
			}
		}
	}
}
