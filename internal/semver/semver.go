package semver

import (
	"errors"
	"fmt"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Ordering is the result of comparing two versions.
type Ordering int

const (
	// Less means the left version has lower precedence.
	Less Ordering = -1
	// Equal means both versions have the same precedence.
	Equal Ordering = 0
	// Greater means the left version has higher precedence.
	Greater Ordering = 1
)

// String implements fmt.Stringer.
func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// ErrInvalidFormat is returned when a string is not a valid semantic version.
var ErrInvalidFormat = errors.New("invalid version format")

// Version is a parsed semantic version. The zero value is not a valid version.
type Version struct {
	parsed *mmsemver.Version
}

// Parse parses a strict semantic version.
func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "v")

	if trimmed == "" {
		return Version{}, fmt.Errorf("%w: empty version", ErrInvalidFormat)
	}

	parsed, err := mmsemver.StrictNewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidFormat, raw, err)
	}

	return Version{parsed: parsed}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests and constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return v
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.parsed == nil
}

// String returns the canonical form without a "v" prefix.
func (v Version) String() string {
	if v.parsed == nil {
		return ""
	}

	return v.parsed.String()
}

// Prerelease returns the pre-release part, if any.
func (v Version) Prerelease() string {
	if v.parsed == nil {
		return ""
	}

	return v.parsed.Prerelease()
}

// Compare orders v relative to other. Build metadata is ignored.
// A zero Version sorts before every parsed one.
func (v Version) Compare(other Version) Ordering {
	switch {
	case v.parsed == nil && other.parsed == nil:
		return Equal
	case v.parsed == nil:
		return Less
	case other.parsed == nil:
		return Greater
	}

	return Ordering(v.parsed.Compare(other.parsed))
}

// Less reports whether v has lower precedence than other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) == Less
}

// Compare orders two parsed versions.
func Compare(a, b Version) Ordering {
	return a.Compare(b)
}

// CompareStrings parses and compares two version strings.
func CompareStrings(a, b string) (Ordering, error) {
	left, err := Parse(a)
	if err != nil {
		return Equal, err
	}

	right, err := Parse(b)
	if err != nil {
		return Equal, err
	}

	return left.Compare(right), nil
}
