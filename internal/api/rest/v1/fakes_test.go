package v1

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/registry"
)

// fakeRegistry is an in-memory Registry for handler tests.
type fakeRegistry struct {
	mu sync.Mutex

	// apps and channels are the created entities in insertion order.
	apps     []*domain.Application
	channels []*domain.Channel

	// releases maps release ids to releases.
	releases map[string]*domain.Release

	// registered records every RegisterInput received.
	registered []registry.RegisterInput

	// err, when set, is returned by every write.
	err error

	// pingErr is returned by Ping.
	pingErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{releases: make(map[string]*domain.Release)}
}

// CreateApplication stores an application or fails on a duplicate id.
func (f *fakeRegistry) CreateApplication(_ context.Context, id, name string) (*domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	for _, app := range f.apps {
		if app.ID == id {
			return nil, domain.ErrDuplicateApplication
		}
	}

	app := &domain.Application{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	f.apps = append(f.apps, app)

	return app, nil
}

// ListApplications returns the stored applications.
func (f *fakeRegistry) ListApplications(context.Context) ([]*domain.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.apps), nil
}

// CreateChannel stores a channel.
func (f *fakeRegistry) CreateChannel(_ context.Context, applicationID, name string) (*domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	channel := &domain.Channel{
		ID:            fmt.Sprintf("channel-%d", len(f.channels)+1),
		ApplicationID: applicationID,
		Name:          name,
		CreatedAt:     time.Now().UTC(),
	}
	f.channels = append(f.channels, channel)

	return channel, nil
}

// ListChannels returns the channels of an application.
func (f *fakeRegistry) ListChannels(_ context.Context, applicationID string) ([]*domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var channels []*domain.Channel

	for _, channel := range f.channels {
		if channel.ApplicationID == applicationID {
			channels = append(channels, channel)
		}
	}

	return channels, nil
}

// Register records in and stores a release at 10%.
func (f *fakeRegistry) Register(_ context.Context, in registry.RegisterInput) (*domain.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registered = append(f.registered, in)

	if f.err != nil {
		return nil, f.err
	}

	rel := &domain.Release{
		ID:                fmt.Sprintf("release-%d", len(f.registered)),
		Scope:             in.Scope,
		Version:           in.Version,
		ArtifactRef:       in.ArtifactRef,
		Checksum:          in.Checksum,
		Signature:         in.Signature,
		RolloutPercentage: 10,
		CreatedAt:         time.Now().UTC(),
	}
	f.releases[rel.ID] = rel

	return rel.Clone(), nil
}

// Promote applies the registry's monotonic rule.
func (f *fakeRegistry) Promote(_ context.Context, releaseID string, percentage int) (*domain.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rel, ok := f.releases[releaseID]
	if !ok {
		return nil, domain.ErrReleaseNotFound
	}

	if percentage < rel.RolloutPercentage {
		return nil, domain.ErrInvalidPercentage
	}

	rel.RolloutPercentage = percentage

	return rel.Clone(), nil
}

// Retract removes a release.
func (f *fakeRegistry) Retract(_ context.Context, releaseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.releases[releaseID]; !ok {
		return domain.ErrReleaseNotFound
	}

	delete(f.releases, releaseID)

	return nil
}

// ListReleases returns the releases of scope.
func (f *fakeRegistry) ListReleases(_ context.Context, scope domain.Scope) ([]*domain.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var releases []*domain.Release

	for _, rel := range f.releases {
		if rel.Scope == scope {
			releases = append(releases, rel.Clone())
		}
	}

	return releases, nil
}

// Ping returns pingErr.
func (f *fakeRegistry) Ping(context.Context) error {
	return f.pingErr
}

// fakeEvaluator returns a fixed outcome.
type fakeEvaluator struct {
	// decision is returned when err is nil.
	decision domain.Decision

	// err is returned when set.
	err error

	// last is the most recent query.
	last domain.Query
}

// Evaluate records query and returns the configured outcome.
func (f *fakeEvaluator) Evaluate(_ context.Context, query domain.Query) (domain.Decision, error) {
	f.last = query

	return f.decision, f.err
}
