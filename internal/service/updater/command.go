package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/service/common"
)

// downloadTimeoutFactor scales the configured call timeout for artifact downloads.
const downloadTimeoutFactor = 60

var (
	errTargetRequired    = errors.New("target executable must be configured to apply updates")
	errPublicKeyRequired = errors.New("public key file must be configured to apply updates")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the client YAML file.
	ConfigPath string
	// Apply installs offered updates; otherwise the run only reports them.
	Apply bool
	// Interval repeats the cycle until the context is canceled; zero runs once.
	Interval time.Duration
	// Version overrides the detected local version.
	Version string
}

// Run executes one update cycle, or polls when an interval is set.
func Run(ctx context.Context, opts *Options) (Result, error) {
	ctx = logger.WithName(ctx, "update-client")

	settings, err := config.LoadOrInitClient(opts.ConfigPath)
	if err != nil {
		return Result{}, fmt.Errorf("load settings: %w", err)
	}

	u := &runner{
		settings:        settings,
		httpClient:      &http.Client{Timeout: settings.Timeout * downloadTimeoutFactor},
		versionOverride: opts.Version,
	}

	if opts.Apply {
		if settings.TargetPath == "" {
			return Result{}, errTargetRequired
		}

		if settings.PublicKeyFile == "" {
			return Result{}, errPublicKeyRequired
		}

		if u.publicKeyPEM, err = os.ReadFile(filepath.Clean(settings.PublicKeyFile)); err != nil {
			return Result{}, fmt.Errorf("read public key: %w", err)
		}
	}

	client, err := common.Dial(ctx, settings.ServerAddress, common.WithCallTimeout(settings.Timeout))
	if err != nil {
		return Result{}, err
	}

	defer func() {
		_ = client.Close()
	}()

	u.checker = client

	logger.InfoKV(ctx, "Update client configured",
		"server", settings.ServerAddress,
		"application", settings.Application,
		"channel", settings.Channel,
		"platform", settings.Platform,
		"client_id", settings.ClientID)

	if opts.Interval <= 0 {
		return u.guardedCycle(ctx, opts.Apply)
	}

	return u.poll(ctx, opts.Apply, opts.Interval)
}

// poll runs cycles every interval until ctx is done. Failed cycles are logged
// and retried on the next tick.
func (u *runner) poll(ctx context.Context, apply bool, interval time.Duration) (Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Result

	for {
		result, err := u.guardedCycle(ctx, apply)
		if err != nil {
			logger.WarnKV(ctx, "Update cycle failed", "error", err)
		} else {
			last = result
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Update polling stopped")

			return last, nil
		case <-ticker.C:
		}
	}
}

// guardedCycle runs a cycle; applying cycles hold the single-instance guard.
func (u *runner) guardedCycle(ctx context.Context, apply bool) (Result, error) {
	if !apply {
		return u.cycle(ctx, false)
	}

	release, err := newGuard(u.settings.TargetPath).acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	return u.cycle(ctx, true)
}
