package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oshokin/update-server/internal/auth"
	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/registry"
	"github.com/oshokin/update-server/internal/storage"
)

// corsMaxAge is how long browsers may cache preflight results.
const corsMaxAge = 12 * time.Hour

// Evaluator answers update checks.
type Evaluator interface {
	Evaluate(ctx context.Context, query domain.Query) (domain.Decision, error)
}

// Registry is the administrative view of the release registry.
type Registry interface {
	CreateApplication(ctx context.Context, id, name string) (*domain.Application, error)
	ListApplications(ctx context.Context) ([]*domain.Application, error)
	CreateChannel(ctx context.Context, applicationID, name string) (*domain.Channel, error)
	ListChannels(ctx context.Context, applicationID string) ([]*domain.Channel, error)
	Register(ctx context.Context, in registry.RegisterInput) (*domain.Release, error)
	Promote(ctx context.Context, releaseID string, percentage int) (*domain.Release, error)
	Retract(ctx context.Context, releaseID string) error
	ListReleases(ctx context.Context, scope domain.Scope) ([]*domain.Release, error)
	Ping(ctx context.Context) error
}

// Signer produces detached signatures for uploads that do not carry one.
type Signer interface {
	Sign(checksum []byte) (string, error)
}

// SessionManager issues and checks administrator session tokens.
type SessionManager interface {
	Issue(identity *auth.Identity) (string, time.Time, error)
	Verify(raw string) (*auth.Identity, error)
	Authorize(identity *auth.Identity) error
}

// HTTPObserver receives per-request metrics and serves the scrape endpoint.
type HTTPObserver interface {
	ObserveHTTPRequest(method, route string, code int)
	Handler() http.Handler
}

// Dependencies are the collaborators of the router. Signer, Metrics and
// FilesRoot are optional.
type Dependencies struct {
	Registry       Registry
	Evaluator      Evaluator
	Storage        storage.Storage
	Signer         Signer
	Authenticator  auth.Authenticator
	Sessions       SessionManager
	Metrics        HTTPObserver
	FilesRoot      string
	AllowedOrigins []string
}

// NewRouter builds the gin engine serving every HTTP route.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Metrics))

	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           corsMaxAge,
		}))
	}

	SetupRoutes(r, deps)

	return r
}

// SetupRoutes registers all routes on r.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	health := NewHealthHandler(deps.Registry)
	r.GET("/healthz", health.Check)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	if deps.FilesRoot != "" {
		r.Static(storage.FilesRoute, deps.FilesRoot)
	}

	v1 := r.Group(BasePath)

	updateHandler := NewUpdateHandler(deps.Evaluator)
	v1.GET("/updates/:application/:channel/:platform", updateHandler.Check)

	authHandler := NewAuthHandler(deps.Authenticator, deps.Sessions)
	v1.POST("/auth/login", authHandler.Login)

	admin := v1.Group("", requireAdmin(deps.Sessions))

	releaseHandler := NewReleaseHandler(deps.Registry, deps.Storage, deps.Signer)
	admin.POST("/apps", releaseHandler.CreateApplication)
	admin.GET("/apps", releaseHandler.ListApplications)
	admin.POST("/apps/:application/channels", releaseHandler.CreateChannel)
	admin.GET("/apps/:application/channels", releaseHandler.ListChannels)
	admin.GET("/apps/:application/channels/:channel/platforms/:platform/releases", releaseHandler.ListReleases)
	admin.POST("/apps/:application/channels/:channel/releases", releaseHandler.Register)
	admin.POST("/releases/:id/promote", releaseHandler.Promote)
	admin.DELETE("/releases/:id", releaseHandler.Retract)
}
