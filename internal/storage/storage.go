package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/oshokin/update-server/internal/config"
	domain "github.com/oshokin/update-server/internal/domain/release"
)

var (
	// ErrObjectNotFound is returned when a key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for empty or escaping keys.
	ErrInvalidKey = errors.New("invalid object key")
	// errUnknownStrategy is returned for unsupported files.strategy values.
	errUnknownStrategy = errors.New("unknown file strategy")
)

// Object describes a stored artifact.
type Object struct {
	// Key is the storage key.
	Key string
	// Size is the number of bytes written.
	Size int64
	// Checksum is the SHA-256 digest of the content.
	Checksum []byte
}

// Storage stores artifacts and resolves their download locations.
type Storage interface {
	Put(ctx context.Context, key string, content io.Reader) (Object, error)
	Locate(ctx context.Context, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// New builds the strategy named in settings. baseURL is the public URL of
// the server, used when local files are served by the server itself.
func New(ctx context.Context, settings config.FileSettings, baseURL string) (Storage, error) {
	switch settings.Strategy {
	case config.FileStrategyLocal:
		return NewLocal(settings.Local, baseURL)
	case config.FileStrategyS3:
		return NewS3(ctx, settings.S3)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownStrategy, settings.Strategy)
	}
}

// ArtifactKey builds the storage key of a release artifact. uploadID keeps a
// rejected duplicate upload from overwriting the artifact of a live release.
func ArtifactKey(scope domain.Scope, version, uploadID, filename string) string {
	return path.Join(
		scope.ApplicationID,
		scope.Channel,
		scope.Platform.String(),
		version,
		path.Base("/"+uploadID),
		path.Base("/"+filename),
	)
}

// cleanKey normalizes key and rejects keys escaping the storage root.
func cleanKey(key string) (string, error) {
	slashed := strings.ReplaceAll(key, "\\", "/")

	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return cleaned, nil
}

// escapeKey escapes every path segment for use in a URL.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.Join(segments, "/")
}

// backendError wraps an I/O failure as ErrBackendUnavailable.
func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrBackendUnavailable, op, err)
}
