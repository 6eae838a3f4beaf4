package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/oshokin/update-server/internal/config"
)

// dummyHash is compared against when a username is unknown so both paths cost the same.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z4ON1i8Zj3xDfSIbcnXv8B4u"

// Local authenticates users listed in the configuration.
type Local struct {
	users map[string]config.LocalUser
}

// NewLocal indexes users by lower-cased username.
func NewLocal(users []config.LocalUser) *Local {
	indexed := make(map[string]config.LocalUser, len(users))
	for _, user := range users {
		indexed[strings.ToLower(user.Username)] = user
	}

	return &Local{users: indexed}
}

// Authenticate checks password against the stored bcrypt hash.
func (l *Local) Authenticate(_ context.Context, username, password string) (*Identity, error) {
	user, found := l.users[strings.ToLower(strings.TrimSpace(username))]

	hash := dummyHash
	if found {
		hash = user.PasswordHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil || !found {
		return nil, ErrInvalidCredentials
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = user.Username
	}

	return &Identity{
		Username:    user.Username,
		DisplayName: displayName,
		Provider:    ProviderLocal,
	}, nil
}

// HashPassword returns a bcrypt hash for a local user entry.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}
