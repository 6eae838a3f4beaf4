package auth

import "context"

// Authenticator verifies a username and secret. The secret is a password for
// local users and an access token for the openid and github strategies.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) (*Identity, error)
}
