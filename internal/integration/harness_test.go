package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-server/internal/auth"
	"github.com/oshokin/update-server/internal/service/server"
)

const (
	// sessionSecretEnv holds the token secret shared by every test server.
	sessionSecretEnv = "UPDATE_SERVER_INTEGRATION_SECRET"

	adminUser     = "admin"
	adminPassword = "integration-password"
)

// TestMain provides the session secret the server resolves from the environment.
func TestMain(m *testing.M) {
	if err := os.Setenv(sessionSecretEnv, strings.Repeat("s", 48)); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// testServer is a running update-server process.
type testServer struct {
	grpcAddress string
	baseURL     string
	token       string
	http        *http.Client
}

// startServer writes a configuration on temp SQLite and local storage, runs
// the server until the test ends and logs in as administrator. signingKeyFile
// may be empty to run without server-side signing.
func startServer(t *testing.T, signingKeyFile string) *testServer {
	t.Helper()

	dir := t.TempDir()

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)

	grpcAddress := reservePort(t)
	httpAddress := reservePort(t)
	baseURL := "http://" + httpAddress

	settings := fmt.Sprintf(`server:
  grpc_address: %q
  http_address: %q
  base_url: %q
  shutdown_timeout: 2s
logging:
  level: warn
database:
  dialect: sqlite
  dsn: %q
files:
  strategy: local
  local:
    root: %q
auth:
  strategy: local
  admin_identifiers: [%s]
  session_secret_env: %s
  local:
    users:
      - username: %s
        password_hash: %q
rollout:
  default_percentage: 10
  cache_size: 32
  cache_ttl: 1s
signing:
  key_file: %q
`, grpcAddress, httpAddress, baseURL,
		filepath.Join(dir, "updates.db"), filepath.Join(dir, "files"),
		adminUser, sessionSecretEnv, adminUser, hash, signingKeyFile)

	configPath := filepath.Join(dir, "update-server.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: configPath})
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	s := &testServer{
		grpcAddress: grpcAddress,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 5 * time.Second},
	}

	require.Eventually(t, func() bool {
		response, err := s.http.Get(baseURL + "/healthz")
		if err != nil {
			return false
		}

		_ = response.Body.Close()

		return response.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	var login struct {
		Token string `json:"token"`
	}

	s.call(t, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"username": adminUser, "password": adminPassword}, http.StatusOK, &login)

	s.token = login.Token

	return s
}

// call sends a JSON request and decodes the response into out when non-nil.
func (s *testServer) call(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var reader io.Reader = http.NoBody

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(context.Background(), method, s.baseURL+path, reader)
	require.NoError(t, err)

	request.Header.Set("Content-Type", "application/json")

	s.send(t, request, wantStatus, out)
}

// send authorizes and executes request.
func (s *testServer) send(t *testing.T, request *http.Request, wantStatus int, out any) {
	t.Helper()

	if s.token != "" {
		request.Header.Set("Authorization", "Bearer "+s.token)
	}

	response, err := s.http.Do(request)
	require.NoError(t, err)

	defer func() {
		_ = response.Body.Close()
	}()

	payload, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, response.StatusCode, string(payload))

	if out != nil {
		require.NoError(t, json.Unmarshal(payload, out))
	}
}

// createScope registers an application with one channel.
func (s *testServer) createScope(t *testing.T, application, channel string) {
	t.Helper()

	s.call(t, http.MethodPost, "/api/v1/apps",
		map[string]string{"id": application, "name": application}, http.StatusCreated, nil)
	s.call(t, http.MethodPost, "/api/v1/apps/"+application+"/channels",
		map[string]string{"name": channel}, http.StatusCreated, nil)
}

// releaseInfo is the subset of a release response the tests read.
type releaseInfo struct {
	ID                string `json:"id"`
	Version           string `json:"version"`
	Checksum          string `json:"checksum"`
	Signature         string `json:"signature"`
	RolloutPercentage int    `json:"rollout_percentage"`
}

// upload registers a release through the multipart admin endpoint.
func (s *testServer) upload(t *testing.T, application, channel, platform, version, signature string,
	artifact []byte,
) releaseInfo {
	t.Helper()

	var body bytes.Buffer

	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("platform", platform))
	require.NoError(t, form.WriteField("version", version))

	if signature != "" {
		require.NoError(t, form.WriteField("signature", signature))
	}

	file, err := form.CreateFormFile("file", application)
	require.NoError(t, err)

	_, err = file.Write(artifact)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	request, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		s.baseURL+"/api/v1/apps/"+application+"/channels/"+channel+"/releases", &body)
	require.NoError(t, err)

	request.Header.Set("Content-Type", form.FormDataContentType())

	var rel releaseInfo

	s.send(t, request, http.StatusCreated, &rel)

	return rel
}

// promote raises the rollout percentage of a release.
func (s *testServer) promote(t *testing.T, releaseID string, percentage int) releaseInfo {
	t.Helper()

	var rel releaseInfo

	s.call(t, http.MethodPost, "/api/v1/releases/"+releaseID+"/promote",
		map[string]int{"percentage": percentage}, http.StatusOK, &rel)

	return rel
}
