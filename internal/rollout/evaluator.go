package rollout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/registry"
	"github.com/oshokin/update-server/internal/semver"
)

// CandidateSource lists the releases of a scope newer than a version.
type CandidateSource interface {
	Candidates(ctx context.Context, scope domain.Scope, after semver.Version) (registry.Candidates, error)
}

// Locator turns an artifact reference into a download location.
type Locator interface {
	Locate(ctx context.Context, key string) (string, error)
}

// DecisionRecorder observes every evaluation.
type DecisionRecorder interface {
	ObserveDecision(reason domain.Reason, err error, elapsed time.Duration)
}

// Evaluator answers update checks.
type Evaluator struct {
	source   CandidateSource
	locator  Locator
	bucket   BucketFunc
	recorder DecisionRecorder
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithBucketFunc replaces the assignment function.
func WithBucketFunc(bucket BucketFunc) Option {
	return func(e *Evaluator) {
		e.bucket = bucket
	}
}

// WithMetrics reports decisions to recorder.
func WithMetrics(recorder DecisionRecorder) Option {
	return func(e *Evaluator) {
		e.recorder = recorder
	}
}

// NewEvaluator builds an Evaluator.
func NewEvaluator(source CandidateSource, locator Locator, opts ...Option) *Evaluator {
	e := &Evaluator{
		source:  source,
		locator: locator,
		bucket:  Bucket,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate decides whether the client described by query is offered an update.
//
// The current version is parsed before the registry is consulted. Unknown
// scopes and backend failures are returned as errors, never as NoUpdate. A
// chosen release without a signature is logged as an integrity fault and
// yields NoUpdate.
func (e *Evaluator) Evaluate(ctx context.Context, query domain.Query) (decision domain.Decision, err error) {
	started := time.Now()

	defer func() {
		if e.recorder != nil {
			e.recorder.ObserveDecision(decision.Reason, err, time.Since(started))
		}
	}()

	current, err := semver.Parse(query.CurrentVersion)
	if err != nil {
		return domain.Decision{}, err
	}

	if strings.TrimSpace(query.ClientID) == "" {
		return domain.Decision{}, fmt.Errorf("%w: client id is empty", domain.ErrInvalidArgument)
	}

	candidates, err := e.source.Candidates(ctx, query.Scope, current)
	if err != nil {
		return domain.Decision{}, err
	}

	if candidates.Len() == 0 {
		return domain.NoUpdate(domain.ReasonUpToDate), nil
	}

	chosen, reason := e.choose(query.ClientID, candidates)
	if chosen == nil {
		return domain.NoUpdate(domain.ReasonNotEligible), nil
	}

	if !chosen.Signed() {
		logger.ErrorKV(ctx, "release has no signature, update withheld",
			"error", domain.ErrSignatureMissing,
			"scope", chosen.Scope.String(),
			"release_id", chosen.ID,
			"version", chosen.Version)

		return domain.NoUpdate(domain.ReasonSignatureMissing), nil
	}

	location, err := e.locator.Locate(ctx, chosen.ArtifactRef)
	if err != nil {
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			err = fmt.Errorf("%w: locate artifact: %w", domain.ErrBackendUnavailable, err)
		}

		return domain.Decision{}, err
	}

	logger.DebugKV(ctx, "update offered",
		"client_id", query.ClientID,
		"current_version", current.String(),
		"release_id", chosen.ID,
		"version", chosen.Version,
		"reason", reason)

	return domain.Decision{
		Release:          chosen,
		ArtifactLocation: location,
		Signature:        chosen.Signature,
		Checksum:         chosen.Checksum,
		Reason:           reason,
	}, nil
}

// choose returns the newest release the client passes the gate for, or else
// the newest fully promoted release.
func (e *Evaluator) choose(clientID string, candidates registry.Candidates) (*domain.Release, domain.Reason) {
	var fallback *domain.Release

	for candidate := range candidates.Descending() {
		if e.bucket(clientID, candidate.ID) < candidate.RolloutPercentage {
			return candidate, domain.ReasonRolloutGate
		}

		if fallback == nil && candidate.FullyPromoted() {
			fallback = candidate
		}
	}

	if fallback != nil {
		return fallback, domain.ReasonPromotedFallback
	}

	return nil, domain.ReasonNotEligible
}
