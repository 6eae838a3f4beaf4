package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// memoryStore is an in-memory Store used by tests.
type memoryStore struct {
	mu           sync.Mutex
	applications map[string]*domain.Application
	channels     map[string]*domain.Channel
	releases     map[string]*domain.Release
	retracted    map[string]bool
	failWith     error
	listCalls    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		applications: make(map[string]*domain.Application),
		channels:     make(map[string]*domain.Channel),
		releases:     make(map[string]*domain.Release),
		retracted:    make(map[string]bool),
	}
}

func (s *memoryStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failWith = err
}

func (s *memoryStore) listReleaseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listCalls
}

func (s *memoryStore) CreateApplication(_ context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	if _, ok := s.applications[app.ID]; ok {
		return domain.ErrDuplicateApplication
	}

	copied := *app
	s.applications[app.ID] = &copied

	return nil
}

func (s *memoryStore) GetApplication(_ context.Context, id string) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	app, ok := s.applications[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownApplication, id)
	}

	copied := *app

	return &copied, nil
}

func (s *memoryStore) ListApplications(_ context.Context) ([]*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	result := make([]*domain.Application, 0, len(s.applications))
	for _, app := range s.applications {
		copied := *app
		result = append(result, &copied)
	}

	return result, nil
}

func (s *memoryStore) CreateChannel(_ context.Context, channel *domain.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	key := channel.ApplicationID + "/" + channel.Name
	if _, ok := s.channels[key]; ok {
		return domain.ErrDuplicateChannel
	}

	copied := *channel
	s.channels[key] = &copied

	return nil
}

func (s *memoryStore) GetChannel(_ context.Context, applicationID, name string) (*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	channel, ok := s.channels[applicationID+"/"+name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownChannel, applicationID, name)
	}

	copied := *channel

	return &copied, nil
}

func (s *memoryStore) ListChannels(_ context.Context, applicationID string) ([]*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	var result []*domain.Channel

	for _, channel := range s.channels {
		if channel.ApplicationID == applicationID {
			copied := *channel
			result = append(result, &copied)
		}
	}

	return result, nil
}

func (s *memoryStore) CreateRelease(_ context.Context, rel *domain.Release) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	for _, other := range s.releases {
		if other.Scope == rel.Scope && other.Version == rel.Version {
			return domain.ErrDuplicateVersion
		}
	}

	s.releases[rel.ID] = rel.Clone()

	return nil
}

func (s *memoryStore) GetRelease(_ context.Context, id string) (*domain.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	rel, ok := s.releases[id]
	if !ok || s.retracted[id] {
		return nil, fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, id)
	}

	return rel.Clone(), nil
}

func (s *memoryStore) ListReleases(_ context.Context, scope domain.Scope) ([]*domain.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++

	if s.failWith != nil {
		return nil, s.failWith
	}

	var result []*domain.Release

	for id, rel := range s.releases {
		if rel.Scope == scope && !s.retracted[id] {
			result = append(result, rel.Clone())
		}
	}

	return result, nil
}

func (s *memoryStore) HasReleases(_ context.Context, scope domain.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return false, s.failWith
	}

	for _, rel := range s.releases {
		if rel.Scope == scope {
			return true, nil
		}
	}

	return false, nil
}

func (s *memoryStore) UpdateRollout(
	_ context.Context,
	id string,
	percentage int,
	promotedAt *time.Time,
) (*domain.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}

	rel, ok := s.releases[id]
	if !ok || s.retracted[id] {
		return nil, fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, id)
	}

	if rel.RolloutPercentage > percentage {
		return nil, domain.ErrInvalidPercentage
	}

	rel.RolloutPercentage = percentage
	if promotedAt != nil && rel.PromotedAt == nil {
		value := *promotedAt
		rel.PromotedAt = &value
	}

	return rel.Clone(), nil
}

func (s *memoryStore) DeleteRelease(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}

	if _, ok := s.releases[id]; !ok || s.retracted[id] {
		return fmt.Errorf("%w: %s", domain.ErrReleaseNotFound, id)
	}

	s.retracted[id] = true

	return nil
}
