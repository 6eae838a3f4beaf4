package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy names accepted in the configuration file.
const (
	DatabaseStrategySQL = "sql"

	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	FileStrategyLocal = "local"
	FileStrategyS3    = "s3"

	AuthStrategyLocal  = "local"
	AuthStrategyOpenID = "openid"
	AuthStrategyGitHub = "github"
)

const (
	// DefaultServerConfigFilename is looked up when no path is given.
	DefaultServerConfigFilename = "update-server.yaml"

	// DefaultSessionSecretEnv names the variable holding the token signing secret.
	DefaultSessionSecretEnv = "UPDATE_SERVER_SESSION_SECRET"

	// DefaultDatabaseTimeout bounds every database call.
	DefaultDatabaseTimeout = 5 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of the listeners.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultTokenTTL is the lifetime of admin session tokens.
	DefaultTokenTTL = 12 * time.Hour

	// DefaultCacheTTL bounds how long a cached scope snapshot may be served.
	DefaultCacheTTL = 5 * time.Second

	// DefaultGitHubAPIURL is the GitHub REST endpoint used by the github strategy.
	DefaultGitHubAPIURL = "https://api.github.com"

	// minSessionSecretLength is the shortest accepted token signing secret.
	minSessionSecretLength = 32
)

// Server is the complete configuration of the update-server process.
type Server struct {
	// Server holds listener settings.
	Server ListenSettings `yaml:"server"`
	// Logging configures the process logger.
	Logging LoggingSettings `yaml:"logging"`
	// Database selects and configures the Database Adapter.
	Database DatabaseSettings `yaml:"database"`
	// Files selects and configures the Storage Adapter.
	Files FileSettings `yaml:"files"`
	// Auth selects the Auth Adapter and lists administrators.
	Auth AuthSettings `yaml:"auth"`
	// Rollout holds release rollout parameters.
	Rollout RolloutSettings `yaml:"rollout"`
	// Signing references the artifact signing key.
	Signing SigningSettings `yaml:"signing"`
}

// ListenSettings configures the gRPC and HTTP listeners.
type ListenSettings struct {
	// GRPCAddress is where the update-check gRPC service listens.
	GRPCAddress string `yaml:"grpc_address" validate:"required,hostname_port"`
	// HTTPAddress is where the REST API listens.
	HTTPAddress string `yaml:"http_address" validate:"required,hostname_port"`
	// BaseURL is the public URL of the REST API.
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// AllowedOrigins lists CORS origins for the REST API.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,url"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingSettings configures the console and optional file logger.
type LoggingSettings struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `yaml:"max_backups" validate:"omitempty,min=1,max=100"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"omitempty,min=1,max=365"`
}

// DatabaseSettings configures the SQL backend.
type DatabaseSettings struct {
	// Strategy is the persistence backend kind.
	Strategy string `yaml:"strategy" validate:"required,oneof=sql"`
	// Dialect is the SQL flavor.
	Dialect string `yaml:"dialect" validate:"required,oneof=sqlite postgres"`
	// DSN is the connection string; prefer DSNEnv for credentials.
	DSN string `yaml:"dsn"`
	// DSNEnv names an environment variable holding the DSN.
	DSNEnv string `yaml:"dsn_env"`
	// Timeout bounds each database call.
	Timeout time.Duration `yaml:"timeout"`
	// MaxOpenConns caps the connection pool; zero keeps the driver default.
	MaxOpenConns int `yaml:"max_open_conns" validate:"min=0"`
}

// FileSettings configures artifact storage.
type FileSettings struct {
	// Strategy is the storage backend kind.
	Strategy string `yaml:"strategy" validate:"required,oneof=local s3"`
	// Local configures the filesystem strategy.
	Local LocalFileSettings `yaml:"local"`
	// S3 configures the object-storage strategy.
	S3 S3Settings `yaml:"s3"`
}

// LocalFileSettings configures the filesystem strategy.
type LocalFileSettings struct {
	// Root is the directory holding artifacts.
	Root string `yaml:"root"`
	// StaticURL is the public URL serving Root; empty means the server's /files route.
	StaticURL string `yaml:"static_url" validate:"omitempty,url"`
}

// S3Settings configures an S3-compatible bucket. Credentials come from the standard AWS chain.
type S3Settings struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	PathStyle bool   `yaml:"path_style"`
	Prefix    string `yaml:"prefix"`
	// PublicURL is a CDN or bucket URL used to build download links.
	PublicURL string `yaml:"public_url" validate:"omitempty,url"`
}

// AuthSettings configures administrator authentication.
type AuthSettings struct {
	// Strategy selects how credentials are verified.
	Strategy string `yaml:"strategy" validate:"required,oneof=local openid github"`
	// AdminIdentifiers are the identities allowed to manage releases.
	AdminIdentifiers []string `yaml:"admin_identifiers" validate:"required,min=1,dive,required"`
	// SessionSecretEnv names the variable holding the token signing secret.
	SessionSecretEnv string `yaml:"session_secret_env"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `yaml:"token_ttl"`
	// Local lists users for the local strategy.
	Local LocalAuthSettings `yaml:"local"`
	// OpenID configures the openid strategy.
	OpenID OpenIDSettings `yaml:"openid"`
	// GitHub configures the github strategy.
	GitHub GitHubSettings `yaml:"github"`

	// SessionSecret is resolved from SessionSecretEnv at load time.
	SessionSecret []byte `yaml:"-"`
}

// LocalAuthSettings lists local users.
type LocalAuthSettings struct {
	Users []LocalUser `yaml:"users" validate:"dive"`
}

// LocalUser is a username with a bcrypt password hash.
type LocalUser struct {
	Username     string `yaml:"username" validate:"required"`
	DisplayName  string `yaml:"display_name"`
	PasswordHash string `yaml:"password_hash" validate:"required"`
}

// OpenIDSettings configures token introspection against a userinfo endpoint.
type OpenIDSettings struct {
	UserinfoURL   string `yaml:"userinfo_url" validate:"omitempty,url"`
	UsernameClaim string `yaml:"username_claim"`
}

// GitHubSettings configures the GitHub API endpoint.
type GitHubSettings struct {
	APIURL string `yaml:"api_url" validate:"omitempty,url"`
}

// RolloutSettings holds rollout parameters.
type RolloutSettings struct {
	// DefaultPercentage is the initial rollout of every non-first release in a scope.
	DefaultPercentage int `yaml:"default_percentage" validate:"min=0,max=100"`
	// CacheSize is the number of scope snapshots cached; zero disables the cache.
	CacheSize int `yaml:"cache_size" validate:"min=0"`
	// CacheTTL bounds the age of a cached snapshot. The cache is per process:
	// with several instances on one database, an instance may serve a scope
	// for up to CacheTTL after another instance changed it.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SigningSettings references the artifact signing key. At most one source may be set.
type SigningSettings struct {
	// KeyFile is a path to a PEM private key, typically a mounted secret.
	KeyFile string `yaml:"key_file"`
	// KeyEnv names an environment variable holding a PEM private key.
	KeyEnv string `yaml:"key_env"`
}

var (
	errLocalRootRequired   = errors.New("files.local.root is required for the local strategy")
	errS3BucketRequired    = errors.New("files.s3.bucket is required for the s3 strategy")
	errDSNRequired         = errors.New("database.dsn or database.dsn_env is required")
	errDSNEnvEmpty         = errors.New("database.dsn_env names an empty variable")
	errLocalUsersRequired  = errors.New("auth.local.users is required for the local strategy")
	errUserinfoRequired    = errors.New("auth.openid.userinfo_url is required for the openid strategy")
	errSessionSecretLength = errors.New("session secret is too short")
	errSigningSources      = errors.New("signing.key_file and signing.key_env are mutually exclusive")
)

// LoadServer reads, defaults, resolves secrets and validates the server configuration.
// A .env file in the working directory is loaded first when present.
func LoadServer(path string) (*Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = DefaultServerConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	return ParseServer(contents)
}

// ParseServer builds a validated configuration from YAML bytes.
func ParseServer(contents []byte) (*Server, error) {
	var cfg Server
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills optional settings.
func (c *Server) applyDefaults() {
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Database.Strategy == "" {
		c.Database.Strategy = DatabaseStrategySQL
	}

	if c.Database.Timeout <= 0 {
		c.Database.Timeout = DefaultDatabaseTimeout
	}

	if c.Auth.SessionSecretEnv == "" {
		c.Auth.SessionSecretEnv = DefaultSessionSecretEnv
	}

	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}

	if c.Auth.OpenID.UsernameClaim == "" {
		c.Auth.OpenID.UsernameClaim = "email"
	}

	if c.Auth.GitHub.APIURL == "" {
		c.Auth.GitHub.APIURL = DefaultGitHubAPIURL
	}

	if c.Rollout.CacheTTL <= 0 {
		c.Rollout.CacheTTL = DefaultCacheTTL
	}

	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
}

// resolveSecrets reads secrets named by reference.
func (c *Server) resolveSecrets() error {
	if c.Database.DSNEnv != "" {
		dsn := os.Getenv(c.Database.DSNEnv)
		if dsn == "" {
			return fmt.Errorf("%w: %s", errDSNEnvEmpty, c.Database.DSNEnv)
		}

		c.Database.DSN = dsn
	}

	c.Auth.SessionSecret = []byte(os.Getenv(c.Auth.SessionSecretEnv))

	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Server) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation failed for server settings: %w", err)
	}

	if c.Database.DSN == "" {
		return errDSNRequired
	}

	switch c.Files.Strategy {
	case FileStrategyLocal:
		if c.Files.Local.Root == "" {
			return errLocalRootRequired
		}
	case FileStrategyS3:
		if c.Files.S3.Bucket == "" {
			return errS3BucketRequired
		}
	}

	switch c.Auth.Strategy {
	case AuthStrategyLocal:
		if len(c.Auth.Local.Users) == 0 {
			return errLocalUsersRequired
		}
	case AuthStrategyOpenID:
		if c.Auth.OpenID.UserinfoURL == "" {
			return errUserinfoRequired
		}
	}

	if len(c.Auth.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("%w: %s must hold at least %d bytes",
			errSessionSecretLength, c.Auth.SessionSecretEnv, minSessionSecretLength)
	}

	if c.Signing.KeyFile != "" && c.Signing.KeyEnv != "" {
		return errSigningSources
	}

	return nil
}

// IsAdmin reports whether identity is listed in AdminIdentifiers.
func (a AuthSettings) IsAdmin(identity string) bool {
	for _, admin := range a.AdminIdentifiers {
		if strings.EqualFold(admin, identity) {
			return true
		}
	}

	return false
}
