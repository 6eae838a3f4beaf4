//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/oshokin/update-server/internal/config"
	pb "github.com/oshokin/update-server/internal/pb/v1"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestCheckForUpdate_NilRequest asserts that a nil request is rejected by the client.
func TestCheckForUpdate_NilRequest(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.CheckForUpdate(context.Background(), nil)
	require.ErrorIs(t, err, errRequestRequired)
}

// TestNewCheckRequest copies the installation identity.
func TestNewCheckRequest(t *testing.T) {
	t.Parallel()

	settings := &config.Client{
		Application: "app",
		Channel:     "beta",
		Platform:    "darwin-arm64",
		ClientID:    "6f1c1c1e-0d55-4b8e-8c43-7a5e2f0f9a11",
	}

	want := &pb.CheckForUpdateRequest{
		Application:    "app",
		Channel:        "beta",
		Platform:       "darwin-arm64",
		ClientId:       "6f1c1c1e-0d55-4b8e-8c43-7a5e2f0f9a11",
		CurrentVersion: "1.2.3",
	}
	got := NewCheckRequest(settings, "1.2.3")
	require.True(t, proto.Equal(want, got), "got %v", got)
}
