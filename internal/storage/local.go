package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/update-server/internal/config"
)

// FilesRoute is where the server serves local artifacts without a static host.
const FilesRoute = "/files"

// Local stores artifacts on the filesystem.
type Local struct {
	root      string
	staticURL string
}

// NewLocal creates root if needed and returns a Local storage.
func NewLocal(settings config.LocalFileSettings, baseURL string) (*Local, error) {
	root, err := filepath.Abs(settings.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	if err = os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	staticURL := settings.StaticURL
	if staticURL == "" {
		staticURL = strings.TrimRight(baseURL, "/") + FilesRoute
	}

	return &Local{
		root:      root,
		staticURL: strings.TrimRight(staticURL, "/"),
	}, nil
}

// Root is the directory holding artifacts.
func (l *Local) Root() string {
	return l.root
}

// Put writes content to key atomically and returns its checksum.
func (l *Local) Put(_ context.Context, key string, content io.Reader) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	target := filepath.Join(l.root, filepath.FromSlash(key))

	if err = os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return Object{}, backendError("create artifact directory", err)
	}

	temporary, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return Object{}, backendError("create temporary file", err)
	}

	defer func() {
		_ = os.Remove(temporary.Name())
	}()

	hasher := sha256.New()

	size, err := io.Copy(io.MultiWriter(temporary, hasher), content)
	if err != nil {
		_ = temporary.Close()

		return Object{}, fmt.Errorf("write artifact: %w", err)
	}

	if err = temporary.Close(); err != nil {
		return Object{}, backendError("close temporary file", err)
	}

	if err = os.Rename(temporary.Name(), target); err != nil {
		return Object{}, backendError("move artifact into place", err)
	}

	return Object{
		Key:      key,
		Size:     size,
		Checksum: hasher.Sum(nil),
	}, nil
}

// Locate returns the static URL of key.
func (l *Local) Locate(_ context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	return l.staticURL + "/" + escapeKey(key), nil
}

// Open reads key.
func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(l.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}

		return nil, backendError("open artifact", err)
	}

	return file, nil
}

// Delete removes key and prunes the directories it leaves empty.
func (l *Local) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	target := filepath.Join(l.root, filepath.FromSlash(key))

	if err = os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return backendError("remove artifact", err)
	}

	for dir := filepath.Dir(target); dir != l.root && strings.HasPrefix(dir, l.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}

	return nil
}
