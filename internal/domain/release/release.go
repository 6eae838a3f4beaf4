package release

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// MinPercentage is the lowest rollout percentage.
	MinPercentage = 0
	// FullRollout is the percentage of a fully promoted release.
	FullRollout = 100
)

// identifierPattern restricts application ids and channel names.
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// Application is a distributable product.
type Application struct {
	// ID is the url-safe slug of the application.
	ID string
	// Name is the human-readable display name.
	Name string
	// CreatedAt is when the application was registered.
	CreatedAt time.Time
}

// Channel is a named release track inside an application.
type Channel struct {
	// ID is the unique channel identifier.
	ID string
	// ApplicationID references the owning application.
	ApplicationID string
	// Name is the track name, for example "stable" or "beta".
	Name string
	// CreatedAt is when the channel was created.
	CreatedAt time.Time
}

// Scope is the (application, channel, platform) triple that owns releases.
type Scope struct {
	ApplicationID string
	Channel       string
	Platform      Platform
}

// String renders the scope as application/channel/platform.
func (s Scope) String() string {
	return s.ApplicationID + "/" + s.Channel + "/" + string(s.Platform)
}

// Validate normalizes identifiers and checks the platform.
func (s Scope) Validate() (Scope, error) {
	return s.validate(nil, nil)
}

// ValidateLookup is Validate for read paths. A malformed identifier cannot
// name a registered application or channel, so it fails as unknown.
func (s Scope) ValidateLookup() (Scope, error) {
	return s.validate(ErrUnknownApplication, ErrUnknownChannel)
}

func (s Scope) validate(unknownApplication, unknownChannel error) (Scope, error) {
	appID, err := NormalizeIdentifier(s.ApplicationID)
	if err != nil {
		return Scope{}, identifierError("application", s.ApplicationID, unknownApplication, err)
	}

	channel, err := NormalizeIdentifier(s.Channel)
	if err != nil {
		return Scope{}, identifierError("channel", s.Channel, unknownChannel, err)
	}

	platform, err := ParsePlatform(string(s.Platform))
	if err != nil {
		return Scope{}, err
	}

	return Scope{
		ApplicationID: appID,
		Channel:       channel,
		Platform:      platform,
	}, nil
}

// identifierError reports err, or unknown when set, for a malformed identifier.
func identifierError(field, raw string, unknown, err error) error {
	if unknown != nil {
		return fmt.Errorf("%w: %s %q", unknown, field, raw)
	}

	return fmt.Errorf("%s: %w", field, err)
}

// NormalizeIdentifier lower-cases and validates an application id or channel name.
func NormalizeIdentifier(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !identifierPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: identifier %q", ErrInvalidArgument, raw)
	}

	return normalized, nil
}

// Release is an immutable published version except for its rollout fields.
type Release struct {
	// ID is the canonical lowercase UUID of the release.
	ID string
	// Scope is the (application, channel, platform) triple.
	Scope Scope
	// Version is the canonical semantic version.
	Version string
	// ArtifactRef is the storage key of the artifact.
	ArtifactRef string
	// Checksum is the hex SHA-256 of the artifact.
	Checksum string
	// Signature is the base64 detached signature over the artifact digest.
	Signature string
	// RolloutPercentage is the share of clients eligible, 0..100.
	RolloutPercentage int
	// PromotedAt is set once RolloutPercentage reached 100.
	PromotedAt *time.Time
	// CreatedAt is the creation timestamp.
	CreatedAt time.Time
}

// FullyPromoted reports whether the release reached 100%.
func (r *Release) FullyPromoted() bool {
	return r.RolloutPercentage >= FullRollout
}

// Signed reports whether the release carries a detached signature.
func (r *Release) Signed() bool {
	return strings.TrimSpace(r.Signature) != ""
}

// Clone returns a copy so callers cannot mutate registry-owned state.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}

	cloned := *r

	if r.PromotedAt != nil {
		promotedAt := *r.PromotedAt
		cloned.PromotedAt = &promotedAt
	}

	return &cloned
}

// ValidatePercentage checks the [0,100] range.
func ValidatePercentage(percentage int) error {
	if percentage < MinPercentage || percentage > FullRollout {
		return fmt.Errorf("%w: %d is outside [%d,%d]", ErrInvalidPercentage, percentage, MinPercentage, FullRollout)
	}

	return nil
}
