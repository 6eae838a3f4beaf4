package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/semver"
)

// Registry write operations reported to the WriteObserver.
const (
	OperationCreateApplication = "create_application"
	OperationCreateChannel     = "create_channel"
	OperationRegister          = "register"
	OperationPromote           = "promote"
	OperationRetract           = "retract"
)

// checksumLength is the hex length of a SHA-256 digest.
const checksumLength = 64

// Registry manages applications, channels and releases.
type Registry struct {
	store             Store
	timeout           time.Duration
	defaultPercentage int
	now               func() time.Time
	newID             func() string
	observer          WriteObserver
	cache             *snapshotCache
	locks             keyedMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultPercentage sets the initial rollout of every non-first release.
func WithDefaultPercentage(percentage int) Option {
	return func(r *Registry) {
		r.defaultPercentage = percentage
	}
}

// WithTimeout bounds every store call.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		r.timeout = timeout
	}
}

// WithCache enables the snapshot cache; a non-positive size disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Registry) {
		if size <= 0 {
			r.cache = nil

			return
		}

		r.cache = newSnapshotCache(size, ttl)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator overrides release and channel id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) {
		r.newID = newID
	}
}

// WithObserver reports writes, typically to metrics.
func WithObserver(observer WriteObserver) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// New builds a Registry on top of store.
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:             store,
		defaultPercentage: domain.MinPercentage,
		now:               time.Now,
		newID:             uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterInput describes a release to publish.
type RegisterInput struct {
	Scope       domain.Scope
	Version     string
	ArtifactRef string
	Checksum    string
	Signature   string
}

// CreateApplication registers a new application.
func (r *Registry) CreateApplication(ctx context.Context, id, name string) (app *domain.Application, err error) {
	defer func() { r.observe(OperationCreateApplication, err) }()

	id, err = domain.NormalizeIdentifier(id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	app = &domain.Application{
		ID:        id,
		Name:      name,
		CreatedAt: r.now().UTC(),
	}

	if err = r.store.CreateApplication(ctx, app); err != nil {
		return nil, backendOnDeadline(err)
	}

	logger.InfoKV(ctx, "application created", "application", id)

	return app, nil
}

// ListApplications returns every application.
func (r *Registry) ListApplications(ctx context.Context) ([]*domain.Application, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	apps, err := r.store.ListApplications(ctx)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	return apps, nil
}

// CreateChannel adds a channel to an existing application.
func (r *Registry) CreateChannel(ctx context.Context, applicationID, name string) (channel *domain.Channel, err error) {
	defer func() { r.observe(OperationCreateChannel, err) }()

	applicationID, err = domain.NormalizeIdentifier(applicationID)
	if err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}

	name, err = domain.NormalizeIdentifier(name)
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err = r.store.GetApplication(ctx, applicationID); err != nil {
		return nil, backendOnDeadline(err)
	}

	channel = &domain.Channel{
		ID:            r.newID(),
		ApplicationID: applicationID,
		Name:          name,
		CreatedAt:     r.now().UTC(),
	}

	if err = r.store.CreateChannel(ctx, channel); err != nil {
		return nil, backendOnDeadline(err)
	}

	logger.InfoKV(ctx, "channel created", "application", applicationID, "channel", name)

	return channel, nil
}

// ListChannels returns the channels of an existing application.
func (r *Registry) ListChannels(ctx context.Context, applicationID string) ([]*domain.Channel, error) {
	applicationID, err := domain.NormalizeIdentifier(applicationID)
	if err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err = r.store.GetApplication(ctx, applicationID); err != nil {
		return nil, backendOnDeadline(err)
	}

	channels, err := r.store.ListChannels(ctx, applicationID)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	return channels, nil
}

// Register publishes a release. The first release of a scope starts fully
// promoted; later ones start at the default percentage. A version that already
// exists in the scope fails with ErrDuplicateVersion and changes nothing.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (rel *domain.Release, err error) {
	defer func() { r.observe(OperationRegister, err) }()

	scope, err := in.Scope.Validate()
	if err != nil {
		return nil, err
	}

	version, err := semver.Parse(in.Version)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.ArtifactRef) == "" {
		return nil, fmt.Errorf("%w: artifact reference is empty", domain.ErrInvalidArgument)
	}

	checksum := strings.ToLower(strings.TrimSpace(in.Checksum))
	if _, decodeErr := hex.DecodeString(checksum); decodeErr != nil || len(checksum) != checksumLength {
		return nil, fmt.Errorf("%w: checksum must be a hex SHA-256 digest", domain.ErrInvalidArgument)
	}

	unlock := r.locks.lock(scope.String())
	defer unlock()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err = r.ensureScope(ctx, scope); err != nil {
		return nil, err
	}

	existing, err := r.store.ListReleases(ctx, scope)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	for _, other := range existing {
		otherVersion, parseErr := semver.Parse(other.Version)
		if parseErr == nil && otherVersion.Compare(version) == semver.Equal {
			return nil, fmt.Errorf("%w: %s in %s", domain.ErrDuplicateVersion, version, scope)
		}
	}

	now := r.now().UTC()

	rel = &domain.Release{
		ID:                r.newID(),
		Scope:             scope,
		Version:           version.String(),
		ArtifactRef:       strings.TrimSpace(in.ArtifactRef),
		Checksum:          checksum,
		Signature:         strings.TrimSpace(in.Signature),
		RolloutPercentage: r.defaultPercentage,
		CreatedAt:         now,
	}

	if len(existing) == 0 {
		everReleased, hasErr := r.store.HasReleases(ctx, scope)
		if hasErr != nil {
			return nil, backendOnDeadline(hasErr)
		}

		if !everReleased {
			rel.RolloutPercentage = domain.FullRollout
		}
	}

	if rel.FullyPromoted() {
		rel.PromotedAt = &now
	}

	if err = r.store.CreateRelease(ctx, rel); err != nil {
		return nil, backendOnDeadline(err)
	}

	r.invalidate(scope)

	logger.InfoKV(ctx, "release registered",
		"scope", scope.String(),
		"release_id", rel.ID,
		"version", rel.Version,
		"rollout_percentage", rel.RolloutPercentage)

	return rel.Clone(), nil
}

// Promote raises the rollout percentage of a release. Lowering it fails with
// ErrInvalidPercentage; rollback is done with Retract.
func (r *Registry) Promote(ctx context.Context, releaseID string, percentage int) (rel *domain.Release, err error) {
	defer func() { r.observe(OperationPromote, err) }()

	if err = domain.ValidatePercentage(percentage); err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	current, err := r.store.GetRelease(ctx, releaseID)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	unlock := r.locks.lock(current.Scope.String())
	defer unlock()

	if percentage < current.RolloutPercentage {
		return nil, fmt.Errorf("%w: %d is below current %d",
			domain.ErrInvalidPercentage, percentage, current.RolloutPercentage)
	}

	var promotedAt *time.Time

	if percentage == domain.FullRollout {
		now := r.now().UTC()
		promotedAt = &now
	}

	rel, err = r.store.UpdateRollout(ctx, releaseID, percentage, promotedAt)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	r.invalidate(rel.Scope)

	logger.InfoKV(ctx, "release promoted",
		"scope", rel.Scope.String(),
		"release_id", rel.ID,
		"version", rel.Version,
		"rollout_percentage", rel.RolloutPercentage)

	return rel.Clone(), nil
}

// Retract removes a release from distribution.
func (r *Registry) Retract(ctx context.Context, releaseID string) (err error) {
	defer func() { r.observe(OperationRetract, err) }()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	current, err := r.store.GetRelease(ctx, releaseID)
	if err != nil {
		return backendOnDeadline(err)
	}

	unlock := r.locks.lock(current.Scope.String())
	defer unlock()

	if err = r.store.DeleteRelease(ctx, releaseID); err != nil {
		return backendOnDeadline(err)
	}

	r.invalidate(current.Scope)

	logger.WarnKV(ctx, "release retracted",
		"scope", current.Scope.String(),
		"release_id", current.ID,
		"version", current.Version)

	return nil
}

// Release returns one live release.
func (r *Registry) Release(ctx context.Context, releaseID string) (*domain.Release, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rel, err := r.store.GetRelease(ctx, releaseID)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	return rel, nil
}

// ListReleases returns the live releases of a scope, newest version first.
func (r *Registry) ListReleases(ctx context.Context, scope domain.Scope) ([]*domain.Release, error) {
	snap, err := r.snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Release, 0, len(snap.releases))
	for _, rel := range slices.Backward(snap.releases) {
		result = append(result, rel.Clone())
	}

	return result, nil
}

// Candidates returns the releases of scope strictly newer than after.
func (r *Registry) Candidates(ctx context.Context, scope domain.Scope, after semver.Version) (Candidates, error) {
	snap, err := r.snapshot(ctx, scope)
	if err != nil {
		return Candidates{}, err
	}

	first := sort.Search(len(snap.versions), func(i int) bool {
		return snap.versions[i].Compare(after) == semver.Greater
	})

	return Candidates{releases: snap.releases[first:]}, nil
}

// Ping reports store connectivity when the store supports it.
func (r *Registry) Ping(ctx context.Context) error {
	pinger, ok := r.store.(Pinger)
	if !ok {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return pinger.Ping(ctx)
}

// snapshot loads the version-sorted releases of scope, through the cache when enabled.
func (r *Registry) snapshot(ctx context.Context, scope domain.Scope) (*snapshot, error) {
	scope, err := scope.ValidateLookup()
	if err != nil {
		return nil, err
	}

	var generation uint64

	if r.cache != nil {
		if snap, ok := r.cache.get(scope); ok {
			return snap, nil
		}

		generation = r.cache.generation(scope)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err = r.ensureScope(ctx, scope); err != nil {
		return nil, err
	}

	releases, err := r.store.ListReleases(ctx, scope)
	if err != nil {
		return nil, backendOnDeadline(err)
	}

	snap := buildSnapshot(ctx, releases)

	if r.cache != nil {
		r.cache.fill(scope, generation, snap)
	}

	return snap, nil
}

// buildSnapshot sorts releases by ascending version, skipping unparsable ones.
func buildSnapshot(ctx context.Context, releases []*domain.Release) *snapshot {
	type entry struct {
		release *domain.Release
		version semver.Version
	}

	entries := make([]entry, 0, len(releases))

	for _, rel := range releases {
		version, err := semver.Parse(rel.Version)
		if err != nil {
			logger.ErrorKV(ctx, "stored release has an invalid version",
				"release_id", rel.ID,
				"version", rel.Version,
				"error", err)

			continue
		}

		entries = append(entries, entry{release: rel, version: version})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return int(a.version.Compare(b.version))
	})

	snap := &snapshot{
		releases: make([]*domain.Release, len(entries)),
		versions: make([]semver.Version, len(entries)),
	}

	for i, e := range entries {
		snap.releases[i] = e.release
		snap.versions[i] = e.version
	}

	return snap
}

// ensureScope checks that the application and channel exist.
func (r *Registry) ensureScope(ctx context.Context, scope domain.Scope) error {
	if _, err := r.store.GetApplication(ctx, scope.ApplicationID); err != nil {
		return backendOnDeadline(err)
	}

	if _, err := r.store.GetChannel(ctx, scope.ApplicationID, scope.Channel); err != nil {
		return backendOnDeadline(err)
	}

	return nil
}

func (r *Registry) invalidate(scope domain.Scope) {
	if r.cache != nil {
		r.cache.invalidate(scope)
	}
}

func (r *Registry) observe(operation string, err error) {
	if r.observer != nil {
		r.observer.ObserveRegistryWrite(operation, err)
	}
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.timeout)
}

// backendOnDeadline classifies unwrapped context failures as backend errors.
func backendOnDeadline(err error) error {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}

	return err
}
