package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oshokin/update-server/internal/config"
)

// tokenIssuer is the iss claim of session tokens.
const tokenIssuer = "update-server"

// ErrInvalidToken is returned for malformed, expired or forged tokens.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are carried by session tokens.
type SessionClaims struct {
	DisplayName string `json:"name,omitempty"`
	Provider    string `json:"provider"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens and applies the admin allowlist.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	auth   config.AuthSettings
	now    func() time.Time
}

// NewSessions builds Sessions from resolved auth settings.
func NewSessions(settings config.AuthSettings) *Sessions {
	return &Sessions{
		secret: settings.SessionSecret,
		ttl:    settings.TokenTTL,
		auth:   settings,
		now:    time.Now,
	}
}

// Issue signs a token for identity and returns it with its expiry.
func (s *Sessions) Issue(identity *Identity) (string, time.Time, error) {
	var (
		now       = s.now()
		expiresAt = now.Add(s.ttl)
		claims    = SessionClaims{
			DisplayName: identity.DisplayName,
			Provider:    identity.Provider,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				Subject:   identity.Username,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		}
	)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify parses a token and returns its identity.
func (s *Sessions) Verify(raw string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{},
		func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		Username:    claims.Subject,
		DisplayName: claims.DisplayName,
		Provider:    claims.Provider,
	}, nil
}

// Authorize returns ErrForbidden unless identity is an administrator.
func (s *Sessions) Authorize(identity *Identity) error {
	if identity == nil || !s.auth.IsAdmin(identity.Username) {
		return ErrForbidden
	}

	return nil
}
