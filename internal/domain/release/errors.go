package release

import (
	"errors"

	"github.com/oshokin/update-server/internal/semver"
)

// Client errors: surfaced to the caller, never retried server-side.
var (
	// ErrInvalidVersionFormat is returned when a version string does not parse.
	ErrInvalidVersionFormat = semver.ErrInvalidFormat
	// ErrUnknownApplication is returned when the application does not exist.
	ErrUnknownApplication = errors.New("unknown application")
	// ErrUnknownChannel is returned when the channel does not exist for the application.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrUnknownPlatform is returned when the platform identifier is not recognized.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrInvalidPercentage is returned for out-of-range or decreasing rollout percentages.
	ErrInvalidPercentage = errors.New("invalid rollout percentage")
	// ErrReleaseNotFound is returned when a release id does not exist.
	ErrReleaseNotFound = errors.New("release not found")
	// ErrInvalidArgument covers malformed identifiers and names.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Data-integrity faults: logged and failed closed.
var (
	// ErrDuplicateVersion is returned when a version already exists in its scope.
	ErrDuplicateVersion = errors.New("duplicate version")
	// ErrDuplicateApplication is returned when an application id is taken.
	ErrDuplicateApplication = errors.New("duplicate application")
	// ErrDuplicateChannel is returned when a channel name is taken within an application.
	ErrDuplicateChannel = errors.New("duplicate channel")
	// ErrSignatureMissing is returned when a release has no detached signature.
	ErrSignatureMissing = errors.New("release signature missing")
)

// ErrBackendUnavailable wraps database, storage and auth backend failures.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Category groups errors by how callers must react to them.
type Category int

const (
	// CategoryInternal is anything the taxonomy does not name.
	CategoryInternal Category = iota
	// CategoryClient errors are the caller's fault.
	CategoryClient
	// CategoryNotFound errors name a scope or entity that does not exist.
	CategoryNotFound
	// CategoryIntegrity errors are data-integrity faults.
	CategoryIntegrity
	// CategoryBackend errors mean eligibility could not be determined.
	CategoryBackend
)

// String implements fmt.Stringer.
func (c Category) String() string {
	switch c {
	case CategoryClient:
		return "client"
	case CategoryNotFound:
		return "not_found"
	case CategoryIntegrity:
		return "integrity"
	case CategoryBackend:
		return "backend"
	default:
		return "internal"
	}
}

// Classify maps an error onto its Category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryInternal
	case errors.Is(err, ErrBackendUnavailable):
		return CategoryBackend
	case errors.Is(err, ErrUnknownApplication),
		errors.Is(err, ErrUnknownChannel),
		errors.Is(err, ErrUnknownPlatform),
		errors.Is(err, ErrReleaseNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrInvalidVersionFormat),
		errors.Is(err, ErrInvalidPercentage),
		errors.Is(err, ErrInvalidArgument):
		return CategoryClient
	case errors.Is(err, ErrDuplicateVersion),
		errors.Is(err, ErrDuplicateApplication),
		errors.Is(err, ErrDuplicateChannel),
		errors.Is(err, ErrSignatureMissing):
		return CategoryIntegrity
	default:
		return CategoryInternal
	}
}
