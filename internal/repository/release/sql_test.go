package release

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-server/internal/config"
	domain "github.com/oshokin/update-server/internal/domain/release"
)

// newTestRepository opens a migrated SQLite database in a temp dir.
func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()

	db, err := NewDBConnection(config.DatabaseSettings{
		Strategy: config.DatabaseStrategySQL,
		Dialect:  config.DialectSQLite,
		DSN:      filepath.Join(t.TempDir(), "updates.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, CloseDB(db))
	})

	return NewSQLRepository(db)
}

// seedScope creates the application and channel of a stable/linux-x64 scope.
func seedScope(t *testing.T, repo *SQLRepository) domain.Scope {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateApplication(ctx, &domain.Application{ID: "desktop", Name: "Desktop", CreatedAt: now}))
	require.NoError(t, repo.CreateChannel(ctx, &domain.Channel{
		ID:            uuid.NewString(),
		ApplicationID: "desktop",
		Name:          "stable",
		CreatedAt:     now,
	}))

	return domain.Scope{ApplicationID: "desktop", Channel: "stable", Platform: "linux-x64"}
}

func newRelease(scope domain.Scope, version string, percentage int) *domain.Release {
	return &domain.Release{
		ID:                uuid.NewString(),
		Scope:             scope,
		Version:           version,
		ArtifactRef:       "desktop/stable/linux-x64/" + version + "/app",
		Checksum:          "00ff",
		Signature:         "c2ln",
		RolloutPercentage: percentage,
		CreatedAt:         time.Now().UTC(),
	}
}

// TestSQLRepository_ApplicationsAndChannels covers creation, lookup and duplicates.
func TestSQLRepository_ApplicationsAndChannels(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		repo  = newTestRepository(t)
		scope = seedScope(t, repo)
	)

	app, err := repo.GetApplication(ctx, scope.ApplicationID)
	require.NoError(t, err)
	require.Equal(t, "Desktop", app.Name)

	_, err = repo.GetApplication(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrUnknownApplication)

	err = repo.CreateApplication(ctx, &domain.Application{ID: "desktop", Name: "Again"})
	require.ErrorIs(t, err, domain.ErrDuplicateApplication)

	channel, err := repo.GetChannel(ctx, "desktop", "stable")
	require.NoError(t, err)
	require.Equal(t, "stable", channel.Name)

	_, err = repo.GetChannel(ctx, "desktop", "beta")
	require.ErrorIs(t, err, domain.ErrUnknownChannel)

	err = repo.CreateChannel(ctx, &domain.Channel{ID: uuid.NewString(), ApplicationID: "desktop", Name: "stable"})
	require.ErrorIs(t, err, domain.ErrDuplicateChannel)

	apps, err := repo.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	channels, err := repo.ListChannels(ctx, "desktop")
	require.NoError(t, err)
	require.Len(t, channels, 1)

	require.NoError(t, repo.Ping(ctx))
}

// TestSQLRepository_Releases covers create, duplicate, list and retraction.
func TestSQLRepository_Releases(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		repo  = newTestRepository(t)
		scope = seedScope(t, repo)
		first = newRelease(scope, "1.0.0", 100)
	)

	require.NoError(t, repo.CreateRelease(ctx, first))

	err := repo.CreateRelease(ctx, newRelease(scope, "1.0.0", 10))
	require.ErrorIs(t, err, domain.ErrDuplicateVersion)

	second := newRelease(scope, "1.1.0", 10)
	require.NoError(t, repo.CreateRelease(ctx, second))

	releases, err := repo.ListReleases(ctx, scope)
	require.NoError(t, err)
	require.Len(t, releases, 2)

	got, err := repo.GetRelease(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "1.1.0", got.Version)
	require.Equal(t, scope, got.Scope)
	require.Equal(t, 10, got.RolloutPercentage)

	require.NoError(t, repo.DeleteRelease(ctx, second.ID))
	require.ErrorIs(t, repo.DeleteRelease(ctx, second.ID), domain.ErrReleaseNotFound)

	_, err = repo.GetRelease(ctx, second.ID)
	require.ErrorIs(t, err, domain.ErrReleaseNotFound)

	releases, err = repo.ListReleases(ctx, scope)
	require.NoError(t, err)
	require.Len(t, releases, 1)

	// Retracted versions keep their slot.
	err = repo.CreateRelease(ctx, newRelease(scope, "1.1.0", 10))
	require.ErrorIs(t, err, domain.ErrDuplicateVersion)
}

// TestSQLRepository_HasReleases counts retracted releases as history.
func TestSQLRepository_HasReleases(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		repo  = newTestRepository(t)
		scope = seedScope(t, repo)
		rel   = newRelease(scope, "1.0.0", 100)
	)

	has, err := repo.HasReleases(ctx, scope)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, repo.CreateRelease(ctx, rel))
	require.NoError(t, repo.DeleteRelease(ctx, rel.ID))

	live, err := repo.ListReleases(ctx, scope)
	require.NoError(t, err)
	require.Empty(t, live)

	has, err = repo.HasReleases(ctx, scope)
	require.NoError(t, err)
	require.True(t, has)

	other := scope
	other.Platform = "windows-x64"

	has, err = repo.HasReleases(ctx, other)
	require.NoError(t, err)
	require.False(t, has)
}

// TestSQLRepository_UpdateRollout verifies the conditional promotion.
func TestSQLRepository_UpdateRollout(t *testing.T) {
	t.Parallel()

	var (
		ctx   = context.Background()
		repo  = newTestRepository(t)
		scope = seedScope(t, repo)
		rel   = newRelease(scope, "2.0.0", 10)
	)

	require.NoError(t, repo.CreateRelease(ctx, rel))

	updated, err := repo.UpdateRollout(ctx, rel.ID, 50, nil)
	require.NoError(t, err)
	require.Equal(t, 50, updated.RolloutPercentage)
	require.Nil(t, updated.PromotedAt)

	// Same value is accepted.
	_, err = repo.UpdateRollout(ctx, rel.ID, 50, nil)
	require.NoError(t, err)

	_, err = repo.UpdateRollout(ctx, rel.ID, 20, nil)
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	promotedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	updated, err = repo.UpdateRollout(ctx, rel.ID, 100, &promotedAt)
	require.NoError(t, err)
	require.Equal(t, 100, updated.RolloutPercentage)
	require.NotNil(t, updated.PromotedAt)
	require.True(t, promotedAt.Equal(*updated.PromotedAt))

	// A later promotion keeps the first timestamp.
	later := promotedAt.Add(time.Hour)

	updated, err = repo.UpdateRollout(ctx, rel.ID, 100, &later)
	require.NoError(t, err)
	require.True(t, promotedAt.Equal(*updated.PromotedAt))

	_, err = repo.UpdateRollout(ctx, uuid.NewString(), 100, nil)
	require.ErrorIs(t, err, domain.ErrReleaseNotFound)
}

// TestSQLRepository_BackendUnavailable ensures driver failures are classified.
func TestSQLRepository_BackendUnavailable(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListApplications(ctx)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	require.Equal(t, domain.CategoryBackend, domain.Classify(err))
}

// TestNewDBConnection_UnknownDialect rejects unsupported dialects.
func TestNewDBConnection_UnknownDialect(t *testing.T) {
	t.Parallel()

	_, err := NewDBConnection(config.DatabaseSettings{Dialect: "oracle", DSN: "x"})
	require.Error(t, err)
}
