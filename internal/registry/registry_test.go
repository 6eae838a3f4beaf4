package registry

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/semver"
)

var (
	testScope    = domain.Scope{ApplicationID: "desktop", Channel: "stable", Platform: "linux-x64"}
	testChecksum = strings.Repeat("ab", 32)
)

// recordingObserver counts write notifications.
type recordingObserver struct {
	mu     sync.Mutex
	writes map[string]int
}

func (o *recordingObserver) ObserveRegistryWrite(operation string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.writes == nil {
		o.writes = make(map[string]int)
	}

	o.writes[operation]++
}

// newTestRegistry returns a registry over a seeded memory store.
func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *memoryStore) {
	t.Helper()

	store := newMemoryStore()
	registry := New(store, append([]Option{WithDefaultPercentage(10)}, opts...)...)

	ctx := context.Background()

	_, err := registry.CreateApplication(ctx, "desktop", "Desktop")
	require.NoError(t, err)

	_, err = registry.CreateChannel(ctx, "desktop", "stable")
	require.NoError(t, err)

	return registry, store
}

func register(t *testing.T, registry *Registry, version string) *domain.Release {
	t.Helper()

	rel, err := registry.Register(context.Background(), RegisterInput{
		Scope:       testScope,
		Version:     version,
		ArtifactRef: "desktop/" + version,
		Checksum:    testChecksum,
		Signature:   "c2lnbmF0dXJl",
	})
	require.NoError(t, err)

	return rel
}

func versions(seq iter.Seq[*domain.Release]) []string {
	var result []string

	for rel := range seq {
		result = append(result, rel.Version)
	}

	return result
}

// TestRegister_InitialPercentage checks first-in-scope and default rollout.
func TestRegister_InitialPercentage(t *testing.T) {
	t.Parallel()

	registry, _ := newTestRegistry(t)

	first := register(t, registry, "v1.0.0")
	require.Equal(t, "1.0.0", first.Version)
	require.Equal(t, domain.FullRollout, first.RolloutPercentage)
	require.NotNil(t, first.PromotedAt)

	second := register(t, registry, "1.1.0")
	require.Equal(t, 10, second.RolloutPercentage)
	require.Nil(t, second.PromotedAt)
}

// TestRegister_RetractedScopeIsNotFirst keeps a scope that only held
// retracted releases on the default rollout percentage.
func TestRegister_RetractedScopeIsNotFirst(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t)
	)

	first := register(t, registry, "1.0.0")
	require.Equal(t, domain.FullRollout, first.RolloutPercentage)
	require.NoError(t, registry.Retract(ctx, first.ID))

	live, err := registry.ListReleases(ctx, testScope)
	require.NoError(t, err)
	require.Empty(t, live)

	next := register(t, registry, "1.1.0")
	require.Equal(t, 10, next.RolloutPercentage)
	require.Nil(t, next.PromotedAt)
}

// TestRegister_DuplicateLeavesStateUnchanged verifies a rejected duplicate has no effect.
func TestRegister_DuplicateLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t)
	)

	register(t, registry, "1.0.0")
	register(t, registry, "1.1.0")

	before, err := registry.ListReleases(ctx, testScope)
	require.NoError(t, err)

	for _, version := range []string{"1.1.0", "v1.1.0", "1.1.0+build.7"} {
		_, err = registry.Register(ctx, RegisterInput{
			Scope:       testScope,
			Version:     version,
			ArtifactRef: "other",
			Checksum:    testChecksum,
		})
		require.ErrorIs(t, err, domain.ErrDuplicateVersion, version)
	}

	after, err := registry.ListReleases(ctx, testScope)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// TestRegister_Rejects covers client errors.
func TestRegister_Rejects(t *testing.T) {
	t.Parallel()

	registry, store := newTestRegistry(t)

	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "invalid version",
			input:   RegisterInput{Scope: testScope, Version: "1.0", ArtifactRef: "a", Checksum: testChecksum},
			wantErr: domain.ErrInvalidVersionFormat,
		},
		{
			name: "unknown application",
			input: RegisterInput{
				Scope:       domain.Scope{ApplicationID: "mobile", Channel: "stable", Platform: "linux-x64"},
				Version:     "1.0.0",
				ArtifactRef: "a",
				Checksum:    testChecksum,
			},
			wantErr: domain.ErrUnknownApplication,
		},
		{
			name: "unknown channel",
			input: RegisterInput{
				Scope:       domain.Scope{ApplicationID: "desktop", Channel: "beta", Platform: "linux-x64"},
				Version:     "1.0.0",
				ArtifactRef: "a",
				Checksum:    testChecksum,
			},
			wantErr: domain.ErrUnknownChannel,
		},
		{
			name: "unknown platform",
			input: RegisterInput{
				Scope:       domain.Scope{ApplicationID: "desktop", Channel: "stable", Platform: "plan9-x64"},
				Version:     "1.0.0",
				ArtifactRef: "a",
				Checksum:    testChecksum,
			},
			wantErr: domain.ErrUnknownPlatform,
		},
		{
			name:    "bad checksum",
			input:   RegisterInput{Scope: testScope, Version: "1.0.0", ArtifactRef: "a", Checksum: "xyz"},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "empty artifact",
			input:   RegisterInput{Scope: testScope, Version: "1.0.0", Checksum: testChecksum},
			wantErr: domain.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		_, err := registry.Register(context.Background(), tt.input)
		require.ErrorIs(t, err, tt.wantErr, tt.name)
	}

	releases, err := store.ListReleases(context.Background(), testScope)
	require.NoError(t, err)
	require.Empty(t, releases)
}

// TestPromote_Monotonic verifies percentages only ever increase.
func TestPromote_Monotonic(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t, WithClock(func() time.Time {
			return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		}))
	)

	register(t, registry, "1.0.0")
	rel := register(t, registry, "1.1.0")

	promoted, err := registry.Promote(ctx, rel.ID, 50)
	require.NoError(t, err)
	require.Equal(t, 50, promoted.RolloutPercentage)
	require.Nil(t, promoted.PromotedAt)

	_, err = registry.Promote(ctx, rel.ID, 40)
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	_, err = registry.Promote(ctx, rel.ID, 101)
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	_, err = registry.Promote(ctx, rel.ID, -1)
	require.ErrorIs(t, err, domain.ErrInvalidPercentage)

	promoted, err = registry.Promote(ctx, rel.ID, 100)
	require.NoError(t, err)
	require.True(t, promoted.FullyPromoted())
	require.NotNil(t, promoted.PromotedAt)

	_, err = registry.Promote(ctx, "00000000-0000-0000-0000-000000000000", 100)
	require.ErrorIs(t, err, domain.ErrReleaseNotFound)
}

// TestPromote_ConcurrentNeverRegresses races promotions and expects the maximum to win.
func TestPromote_ConcurrentNeverRegresses(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t)
		wg          sync.WaitGroup
	)

	register(t, registry, "1.0.0")
	rel := register(t, registry, "2.0.0")

	for percentage := 10; percentage <= 90; percentage += 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := registry.Promote(ctx, rel.ID, percentage)
			if err != nil && !errors.Is(err, domain.ErrInvalidPercentage) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	current, err := registry.Release(ctx, rel.ID)
	require.NoError(t, err)
	require.Equal(t, 90, current.RolloutPercentage)
}

// TestCandidates_Order checks strict filtering and both walk directions.
func TestCandidates_Order(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t)
	)

	for _, version := range []string{"1.0.0", "1.2.0", "1.1.0", "1.2.0-rc.1", "0.9.0"} {
		register(t, registry, version)
	}

	candidates, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)
	require.Equal(t, 3, candidates.Len())
	require.Equal(t, []string{"1.1.0", "1.2.0-rc.1", "1.2.0"}, versions(candidates.Ascending()))
	require.Equal(t, []string{"1.2.0", "1.2.0-rc.1", "1.1.0"}, versions(candidates.Descending()))

	// Restartable.
	require.Equal(t, versions(candidates.Descending()), versions(candidates.Descending()))

	// Early stop.
	for rel := range candidates.Descending() {
		require.Equal(t, "1.2.0", rel.Version)

		break
	}

	current, err := registry.Candidates(ctx, testScope, semver.MustParse("1.2.0"))
	require.NoError(t, err)
	require.Zero(t, current.Len())

	ahead, err := registry.Candidates(ctx, testScope, semver.MustParse("5.0.0"))
	require.NoError(t, err)
	require.Zero(t, ahead.Len())
}

// TestCandidates_MalformedScopeIsUnknown answers lookups for identifiers that
// can never be registered as not found.
func TestCandidates_MalformedScopeIsUnknown(t *testing.T) {
	t.Parallel()

	var (
		ctx             = context.Background()
		registry, store = newTestRegistry(t)
	)

	malformedApp := testScope
	malformedApp.ApplicationID = "Desk Top!"

	_, err := registry.Candidates(ctx, malformedApp, semver.MustParse("1.0.0"))
	require.ErrorIs(t, err, domain.ErrUnknownApplication)
	require.Equal(t, domain.CategoryNotFound, domain.Classify(err))

	malformedChannel := testScope
	malformedChannel.Channel = ""

	_, err = registry.ListReleases(ctx, malformedChannel)
	require.ErrorIs(t, err, domain.ErrUnknownChannel)
	require.Equal(t, domain.CategoryNotFound, domain.Classify(err))

	require.Zero(t, store.listReleaseCalls())
}

// TestCandidates_YieldCopies ensures callers cannot mutate registry state.
func TestCandidates_YieldCopies(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t, WithCache(16, time.Minute))
	)

	register(t, registry, "1.0.0")

	candidates, err := registry.Candidates(ctx, testScope, semver.Version{})
	require.NoError(t, err)

	for rel := range candidates.Ascending() {
		rel.RolloutPercentage = 0
	}

	again, err := registry.Candidates(ctx, testScope, semver.Version{})
	require.NoError(t, err)

	for rel := range again.Ascending() {
		require.Equal(t, domain.FullRollout, rel.RolloutPercentage)
	}
}

// TestRetract removes a release from candidates.
func TestRetract(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		registry, _ = newTestRegistry(t, WithCache(16, time.Minute))
	)

	register(t, registry, "1.0.0")
	bad := register(t, registry, "1.1.0")

	candidates, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)
	require.Equal(t, 1, candidates.Len())

	require.NoError(t, registry.Retract(ctx, bad.ID))
	require.ErrorIs(t, registry.Retract(ctx, bad.ID), domain.ErrReleaseNotFound)

	candidates, err = registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)
	require.Zero(t, candidates.Len())
}

// TestCache_ReadAfterPromotion verifies cached reads observe committed promotions.
func TestCache_ReadAfterPromotion(t *testing.T) {
	t.Parallel()

	var (
		ctx             = context.Background()
		registry, store = newTestRegistry(t, WithCache(16, time.Minute))
	)

	register(t, registry, "1.0.0")
	rel := register(t, registry, "1.1.0")

	_, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)

	calls := store.listReleaseCalls()

	// Served from cache.
	_, err = registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)
	require.Equal(t, calls, store.listReleaseCalls())

	_, err = registry.Promote(ctx, rel.ID, 60)
	require.NoError(t, err)

	candidates, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.NoError(t, err)

	got := slices.Collect(candidates.Ascending())
	require.Len(t, got, 1)
	require.Equal(t, 60, got[0].RolloutPercentage)
}

// firstCandidatePercentage returns the rollout percentage of the only
// candidate newer than 1.0.0, or -1 when there is not exactly one.
func firstCandidatePercentage(ctx context.Context, registry *Registry) int {
	candidates, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	if err != nil {
		return -1
	}

	got := slices.Collect(candidates.Ascending())
	if len(got) != 1 {
		return -1
	}

	return got[0].RolloutPercentage
}

// TestCache_OtherInstanceStaleUntilTTL shows a second registry over the same
// store keeps its cached snapshot until the TTL expires.
func TestCache_OtherInstanceStaleUntilTTL(t *testing.T) {
	t.Parallel()

	const ttl = time.Second

	var (
		ctx           = context.Background()
		writer, store = newTestRegistry(t, WithCache(16, ttl))
		reader        = New(store, WithDefaultPercentage(10), WithCache(16, ttl))
	)

	register(t, writer, "1.0.0")
	rel := register(t, writer, "1.1.0")

	require.Equal(t, 10, firstCandidatePercentage(ctx, reader))

	_, err := writer.Promote(ctx, rel.ID, 60)
	require.NoError(t, err)

	require.Equal(t, 60, firstCandidatePercentage(ctx, writer))
	require.Equal(t, 10, firstCandidatePercentage(ctx, reader))

	require.Eventually(t, func() bool {
		return firstCandidatePercentage(ctx, reader) == 60
	}, 10*time.Second, 50*time.Millisecond)
}

// TestCache_StaleFillDiscarded checks the generation guard.
func TestCache_StaleFillDiscarded(t *testing.T) {
	t.Parallel()

	cache := newSnapshotCache(4, time.Minute)

	generation := cache.generation(testScope)
	cache.invalidate(testScope)
	cache.fill(testScope, generation, &snapshot{})

	_, ok := cache.get(testScope)
	require.False(t, ok)

	cache.fill(testScope, cache.generation(testScope), &snapshot{})

	_, ok = cache.get(testScope)
	require.True(t, ok)
}

// TestBackendUnavailable verifies store failures keep their category.
func TestBackendUnavailable(t *testing.T) {
	t.Parallel()

	var (
		ctx             = context.Background()
		registry, store = newTestRegistry(t)
	)

	store.fail(context.DeadlineExceeded)

	_, err := registry.Candidates(ctx, testScope, semver.MustParse("1.0.0"))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	_, err = registry.ListApplications(ctx)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

// TestApplicationsAndChannels covers the administrative listings.
func TestApplicationsAndChannels(t *testing.T) {
	t.Parallel()

	var (
		ctx         = context.Background()
		observer    = new(recordingObserver)
		registry, _ = newTestRegistry(t, WithObserver(observer))
	)

	_, err := registry.CreateApplication(ctx, "Desktop", "again")
	require.ErrorIs(t, err, domain.ErrDuplicateApplication)

	_, err = registry.CreateApplication(ctx, "bad id!", "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = registry.CreateChannel(ctx, "mobile", "stable")
	require.ErrorIs(t, err, domain.ErrUnknownApplication)

	beta, err := registry.CreateChannel(ctx, "desktop", "Beta")
	require.NoError(t, err)
	require.Equal(t, "beta", beta.Name)

	channels, err := registry.ListChannels(ctx, "desktop")
	require.NoError(t, err)
	require.Len(t, channels, 2)

	_, err = registry.ListChannels(ctx, "mobile")
	require.ErrorIs(t, err, domain.ErrUnknownApplication)

	apps, err := registry.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	require.NoError(t, registry.Ping(ctx))

	observer.mu.Lock()
	defer observer.mu.Unlock()

	require.Equal(t, 3, observer.writes[OperationCreateChannel])
}
