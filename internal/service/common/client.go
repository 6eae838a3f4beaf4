//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oshokin/update-server/internal/config"
	pb "github.com/oshokin/update-server/internal/pb/v1"
)

// Client wraps the gRPC UpdateService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the update server.
	conn *grpc.ClientConn
	// api is the UpdateService client interface.
	api pb.UpdateServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errRequestRequired is returned when a nil request is passed to CheckForUpdate.
	errRequestRequired = errors.New("request must be provided")
)

// Dial establishes a gRPC connection to the update server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added. Artifacts are
// verified by checksum and signature regardless of transport.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial update server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         pb.NewUpdateServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// CheckForUpdate asks the server whether a newer release is offered.
func (c *Client) CheckForUpdate(
	ctx context.Context,
	request *pb.CheckForUpdateRequest,
) (*pb.CheckForUpdateResponse, error) {
	if request == nil {
		return nil, errRequestRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.CheckForUpdate(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("check for update: %w", err)
	}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
