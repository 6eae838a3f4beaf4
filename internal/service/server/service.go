package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	rest "github.com/oshokin/update-server/internal/api/rest/v1"
	"github.com/oshokin/update-server/internal/auth"
	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/metrics"
	"github.com/oshokin/update-server/internal/registry"
	repository "github.com/oshokin/update-server/internal/repository/release"
	"github.com/oshokin/update-server/internal/rollout"
	"github.com/oshokin/update-server/internal/signing"
	"github.com/oshokin/update-server/internal/storage"
)

// app holds the long-lived collaborators built from the configuration.
type app struct {
	settings      *config.Server
	db            *gorm.DB
	registry      *registry.Registry
	evaluator     *rollout.Evaluator
	storage       storage.Storage
	signer        *signing.Signer
	authenticator auth.Authenticator
	sessions      *auth.Sessions
	metrics       *metrics.Recorder
}

// newApp connects the backends and wires the registry and evaluator.
func newApp(ctx context.Context, settings *config.Server) (*app, error) {
	signer, err := signing.LoadSigner(settings.Signing)

	switch {
	case errors.Is(err, signing.ErrKeyNotConfigured):
		logger.Warn(ctx, "No signing key configured, uploads must carry their own signature")
	case err != nil:
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	authenticator, err := auth.New(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	files, err := storage.New(ctx, settings.Files, settings.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	db, err := repository.NewDBConnection(settings.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	recorder := metrics.New()

	releases := registry.New(repository.NewSQLRepository(db),
		registry.WithDefaultPercentage(settings.Rollout.DefaultPercentage),
		registry.WithTimeout(settings.Database.Timeout),
		registry.WithCache(settings.Rollout.CacheSize, settings.Rollout.CacheTTL),
		registry.WithObserver(recorder),
	)

	logger.InfoKV(ctx, "Backends ready",
		"database", settings.Database.Dialect,
		"files", settings.Files.Strategy,
		"auth", settings.Auth.Strategy,
		"signing", signer != nil)

	return &app{
		settings:      settings,
		db:            db,
		registry:      releases,
		evaluator:     rollout.NewEvaluator(releases, files, rollout.WithMetrics(recorder)),
		storage:       files,
		signer:        signer,
		authenticator: authenticator,
		sessions:      auth.NewSessions(settings.Auth),
		metrics:       recorder,
	}, nil
}

// router builds the HTTP handler.
func (a *app) router() *gin.Engine {
	deps := rest.Dependencies{
		Registry:       a.registry,
		Evaluator:      a.evaluator,
		Storage:        a.storage,
		Authenticator:  a.authenticator,
		Sessions:       a.sessions,
		Metrics:        a.metrics,
		AllowedOrigins: a.settings.Server.AllowedOrigins,
	}

	// A nil *Signer must not become a non-nil interface.
	if a.signer != nil {
		deps.Signer = a.signer
	}

	if local, ok := a.storage.(*storage.Local); ok && a.settings.Files.Local.StaticURL == "" {
		deps.FilesRoot = local.Root()
	}

	return rest.NewRouter(deps)
}

// close releases the database connection.
func (a *app) close(ctx context.Context) {
	if err := repository.CloseDB(a.db); err != nil {
		logger.ErrorKV(ctx, "Failed to close database", "error", err)
	}
}
