package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/update-server/internal/logger"
)

// markerLifetime is the period after which an update marker is considered stale.
const markerLifetime = 10 * time.Minute

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errOwnProcessMissing     = errors.New("own process not found in process table")
)

// guard makes sure only one updater works on a target at a time.
type guard struct {
	// marker is the file whose presence means an update is in progress.
	marker string
	// lifetime bounds how long a marker is trusted without a live process.
	lifetime time.Duration
	// otherRunning reports whether another updater process exists.
	otherRunning func() (bool, error)
}

// newGuard places the marker next to target.
func newGuard(target string) *guard {
	return &guard{
		marker:       filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".update-marker"),
		lifetime:     markerLifetime,
		otherRunning: otherUpdaterRunning,
	}
}

// acquire creates the marker or fails with errUpdaterAlreadyRunning. A stale
// marker is taken over unless another updater process is still alive.
func (g *guard) acquire(ctx context.Context) (func(), error) {
	info, err := os.Stat(g.marker)

	switch {
	case err == nil:
		if time.Since(info.ModTime()) <= g.lifetime {
			return nil, errUpdaterAlreadyRunning
		}

		running, lookupErr := g.otherRunning()
		if lookupErr != nil || running {
			return nil, errUpdaterAlreadyRunning
		}

		logger.InfoKV(ctx, "Removing stale update marker", "marker", g.marker)

		if err = os.Remove(g.marker); err != nil {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read update marker: %w", err)
	}

	marker, err := os.OpenFile(g.marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errUpdaterAlreadyRunning
		}

		return nil, fmt.Errorf("create update marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close update marker: %w", err)
	}

	return func() {
		if removeErr := os.Remove(g.marker); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to remove update marker", "error", removeErr)
		}
	}, nil
}

// otherUpdaterRunning scans the process table for another process running
// the same executable as this one.
func otherUpdaterRunning() (bool, error) {
	self, err := ps.FindProcess(os.Getpid())
	if err != nil {
		return false, fmt.Errorf("find own process: %w", err)
	}

	if self == nil {
		return false, errOwnProcessMissing
	}

	processes, err := ps.Processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processes {
		if process.Pid() != self.Pid() && process.Executable() == self.Executable() {
			return true, nil
		}
	}

	return false, nil
}
