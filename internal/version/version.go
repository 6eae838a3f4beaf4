package version

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// fullPrefix starts every line produced by Full.
const fullPrefix = "version: "

// ErrUnrecognizedOutput is returned when a version line cannot be parsed.
var ErrUnrecognizedOutput = errors.New("unrecognized version output")

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s%s, commit: %s, built at: %s", fullPrefix, Version, Commit, BuildTime)
}

// ParseFull extracts the version from a line produced by Full.
func ParseFull(output string) (string, error) {
	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, fullPrefix) {
		return "", ErrUnrecognizedOutput
	}

	head, _, _ := strings.Cut(strings.TrimPrefix(output, fullPrefix), ",")

	parsed := strings.TrimSpace(head)
	if parsed == "" {
		return "", ErrUnrecognizedOutput
	}

	return parsed, nil
}
