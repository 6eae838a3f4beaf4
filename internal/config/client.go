package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-server/internal/domain/release"
)

// Client holds the settings of the update client.
type Client struct {
	// ServerAddress is the gRPC address of the update server.
	ServerAddress string `yaml:"server_addr"`
	// Application is the application identifier to check updates for.
	Application string `yaml:"application"`
	// Channel is the release channel, for example "stable".
	Channel string `yaml:"channel"`
	// Platform is "<os>-<arch>"; empty means the running platform.
	Platform string `yaml:"platform"`
	// ClientID is the stable identity of this installation.
	ClientID string `yaml:"client_id"`
	// TargetPath is the executable replaced by applied updates.
	TargetPath string `yaml:"target"`
	// PublicKeyFile is the PEM public key used to verify artifact signatures.
	PublicKeyFile string `yaml:"public_key_file"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultClientConfigFilename is the default filename for client settings.
	DefaultClientConfigFilename = "update-client.yaml"

	// DefaultChannel is used when no channel is configured.
	DefaultChannel = "stable"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errApplicationRequired is returned when application is missing.
	errApplicationRequired = errors.New("application must be provided")
	// errInvalidClientID is returned when client_id is not a UUID.
	errInvalidClientID = errors.New("client_id must be a UUID")
)

// LoadClient reads client settings from path and validates them.
func LoadClient(path string) (*Client, error) {
	cfg, _, err := loadClient(path)

	return cfg, err
}

// LoadOrInitClient is LoadClient that also persists a client id generated on
// first use, so the installation keeps its rollout bucket across runs.
func LoadOrInitClient(path string) (*Client, error) {
	cfg, generated, err := loadClient(path)
	if err != nil {
		return nil, err
	}

	if generated {
		if err = SaveClient(path, cfg); err != nil {
			return nil, fmt.Errorf("persist client id: %w", err)
		}
	}

	return cfg, nil
}

// loadClient reads and validates settings, reporting whether a client id was generated.
func loadClient(path string) (*Client, bool, error) {
	if path == "" {
		path = DefaultClientConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, false, fmt.Errorf("read settings: %w", err)
	}

	var cfg Client
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, false, fmt.Errorf("unmarshal settings: %w", err)
	}

	generated := cfg.ClientID == ""

	if err = cfg.Validate(); err != nil {
		return nil, false, err
	}

	return &cfg, generated, nil
}

// SaveClient writes client settings to path.
func SaveClient(path string, cfg *Client) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultClientConfigFilename
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults, including a fresh
// client id when none is set. Callers persist the result with SaveClient.
func (c *Client) Validate() error {
	if c.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", c.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if c.Application == "" {
		return errApplicationRequired
	}

	if c.Channel == "" {
		c.Channel = DefaultChannel
	}

	if c.Platform == "" {
		platform, err := release.PlatformFor(runtime.GOOS, runtime.GOARCH)
		if err != nil {
			return err
		}

		c.Platform = platform.String()
	}

	platform, err := release.ParsePlatform(c.Platform)
	if err != nil {
		return err
	}

	c.Platform = platform.String()

	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	} else if _, err := uuid.Parse(c.ClientID); err != nil {
		return fmt.Errorf("%w: %w", errInvalidClientID, err)
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	return nil
}
