package registry

import (
	"context"
	"time"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// Store is the persistence contract of the registry.
type Store interface {
	CreateApplication(ctx context.Context, app *domain.Application) error
	GetApplication(ctx context.Context, id string) (*domain.Application, error)
	ListApplications(ctx context.Context) ([]*domain.Application, error)

	CreateChannel(ctx context.Context, channel *domain.Channel) error
	GetChannel(ctx context.Context, applicationID, name string) (*domain.Channel, error)
	ListChannels(ctx context.Context, applicationID string) ([]*domain.Channel, error)

	CreateRelease(ctx context.Context, rel *domain.Release) error
	GetRelease(ctx context.Context, id string) (*domain.Release, error)
	ListReleases(ctx context.Context, scope domain.Scope) ([]*domain.Release, error)
	// HasReleases reports whether scope ever held a release, retracted ones included.
	HasReleases(ctx context.Context, scope domain.Scope) (bool, error)
	// UpdateRollout must refuse to lower the stored percentage.
	UpdateRollout(ctx context.Context, id string, percentage int, promotedAt *time.Time) (*domain.Release, error)
	DeleteRelease(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WriteObserver is notified after every registry write.
type WriteObserver interface {
	ObserveRegistryWrite(operation string, err error)
}
