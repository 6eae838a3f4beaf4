package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oshokin/update-server/internal/config"
	domain "github.com/oshokin/update-server/internal/domain/release"
)

// maxUserinfoBytes caps identity provider responses.
const maxUserinfoBytes = 1 << 20

// OpenID authenticates access tokens against a userinfo endpoint.
type OpenID struct {
	client   *http.Client
	endpoint string
	claim    string
}

// NewOpenID builds an OpenID authenticator.
func NewOpenID(client *http.Client, settings config.OpenIDSettings) *OpenID {
	claim := settings.UsernameClaim
	if claim == "" {
		claim = "email"
	}

	return &OpenID{
		client:   client,
		endpoint: settings.UserinfoURL,
		claim:    claim,
	}
}

// Authenticate resolves token to the configured claim. A non-empty username
// must match the claim.
func (o *OpenID) Authenticate(ctx context.Context, username, token string) (*Identity, error) {
	var claims map[string]any
	if err := fetchIdentity(ctx, o.client, o.endpoint, token, &claims); err != nil {
		return nil, err
	}

	subject, _ := claims[o.claim].(string)
	if subject == "" {
		return nil, fmt.Errorf("%w: claim %q is missing", ErrInvalidCredentials, o.claim)
	}

	if username != "" && !strings.EqualFold(username, subject) {
		return nil, ErrInvalidCredentials
	}

	displayName, _ := claims["name"].(string)

	return &Identity{
		Username:    subject,
		DisplayName: displayName,
		Provider:    ProviderOpenID,
	}, nil
}

// GitHub authenticates personal access tokens against the GitHub user API.
type GitHub struct {
	client  *http.Client
	userURL string
}

// NewGitHub builds a GitHub authenticator.
func NewGitHub(client *http.Client, settings config.GitHubSettings) *GitHub {
	apiURL := settings.APIURL
	if apiURL == "" {
		apiURL = config.DefaultGitHubAPIURL
	}

	return &GitHub{
		client:  client,
		userURL: strings.TrimRight(apiURL, "/") + "/user",
	}
}

// githubUser is the subset of the GitHub user payload we read.
type githubUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Authenticate resolves token to a GitHub login. A non-empty username must match it.
func (g *GitHub) Authenticate(ctx context.Context, username, token string) (*Identity, error) {
	var user githubUser
	if err := fetchIdentity(ctx, g.client, g.userURL, token, &user); err != nil {
		return nil, err
	}

	if user.Login == "" {
		return nil, fmt.Errorf("%w: login is missing", ErrInvalidCredentials)
	}

	if username != "" && !strings.EqualFold(username, user.Login) {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Username:    user.Login,
		DisplayName: user.Name,
		Provider:    ProviderGitHub,
	}, nil
}

// fetchIdentity calls endpoint with a bearer token and decodes the JSON body.
func fetchIdentity(ctx context.Context, client *http.Client, endpoint, token string, out any) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}

	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: identity provider: %w", domain.ErrBackendUnavailable, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	switch {
	case response.StatusCode == http.StatusUnauthorized, response.StatusCode == http.StatusForbidden:
		return ErrInvalidCredentials
	case response.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: identity provider returned %s", domain.ErrBackendUnavailable, response.Status)
	}

	if err = json.NewDecoder(io.LimitReader(response.Body, maxUserinfoBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode identity: %w", domain.ErrBackendUnavailable, err)
	}

	return nil
}
