package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/update-server/internal/config"
)

// Strategy names reported in Identity.Provider.
const (
	ProviderLocal  = "local"
	ProviderOpenID = "openid"
	ProviderGitHub = "github"
)

// defaultHTTPTimeout bounds calls to identity providers.
const defaultHTTPTimeout = 10 * time.Second

var (
	// ErrInvalidCredentials is returned when a username or secret is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when an authenticated identity is not an administrator.
	ErrForbidden = errors.New("not an administrator")
	// errUnknownStrategy is returned for unsupported auth.strategy values.
	errUnknownStrategy = errors.New("unknown auth strategy")
)

// Identity is an authenticated principal.
type Identity struct {
	// Username is the identifier matched against the admin allowlist.
	Username string `json:"username"`
	// DisplayName is a human-readable name.
	DisplayName string `json:"display_name,omitempty"`
	// Provider is the strategy that authenticated the identity.
	Provider string `json:"provider"`
}

// New builds the Authenticator named in settings.
func New(settings config.AuthSettings) (Authenticator, error) {
	client := &http.Client{Timeout: defaultHTTPTimeout}

	switch settings.Strategy {
	case config.AuthStrategyLocal:
		return NewLocal(settings.Local.Users), nil
	case config.AuthStrategyOpenID:
		return NewOpenID(client, settings.OpenID), nil
	case config.AuthStrategyGitHub:
		return NewGitHub(client, settings.GitHub), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownStrategy, settings.Strategy)
	}
}
