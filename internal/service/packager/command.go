package packager

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/signing"
)

const (
	// DefaultPrivateKeyFilename is where keygen writes the signing key.
	DefaultPrivateKeyFilename = "update-signing.key"
	// DefaultPublicKeyFilename is where keygen writes the verifying key.
	DefaultPublicKeyFilename = "update-signing.pub"
	// ManifestSuffix is appended to the artifact path to name its manifest.
	ManifestSuffix = ".release.yaml"

	privateKeyMode os.FileMode = 0o600
	publicKeyMode  os.FileMode = 0o644
)

var (
	errKeyExists        = errors.New("key file already exists, use --force to overwrite")
	errArtifactRequired = errors.New("artifact path is required")
	errKeyRequired      = errors.New("private key path is required")
)

// KeygenOptions are inputs of the keygen command.
type KeygenOptions struct {
	// PrivateKeyPath receives the PEM private key.
	PrivateKeyPath string
	// PublicKeyPath receives the PEM public key distributed to clients.
	PublicKeyPath string
	// Force overwrites existing files.
	Force bool
}

// SignOptions are inputs of the sign command.
type SignOptions struct {
	// ArtifactPath is the file to sign.
	ArtifactPath string
	// PrivateKeyPath is the PEM signing key.
	PrivateKeyPath string
	// ManifestPath overrides the manifest location; empty means <artifact>.release.yaml.
	ManifestPath string
}

// Manifest describes a signed artifact.
type Manifest struct {
	// File is the base name of the artifact.
	File string `yaml:"file"`
	// Size is the artifact length in bytes.
	Size int64 `yaml:"size"`
	// Checksum is the hex SHA-256 of the artifact.
	Checksum string `yaml:"checksum"`
	// Signature is the base64 ECDSA signature over the checksum.
	Signature string `yaml:"signature"`
}

// Keygen creates a new signing key pair.
func Keygen(ctx context.Context, opts *KeygenOptions) error {
	ctx = logger.WithName(ctx, "update-packager")

	if !opts.Force {
		for _, path := range []string{opts.PrivateKeyPath, opts.PublicKeyPath} {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s: %w", path, errKeyExists)
			}
		}
	}

	key, err := signing.GenerateKey()
	if err != nil {
		return err
	}

	privatePEM, err := signing.EncodePrivateKey(key)
	if err != nil {
		return err
	}

	publicPEM, err := signing.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return err
	}

	if err = os.WriteFile(opts.PrivateKeyPath, privatePEM, privateKeyMode); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	if err = os.WriteFile(opts.PublicKeyPath, publicPEM, publicKeyMode); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	logger.InfoKV(ctx, "Signing key pair created",
		"private_key", opts.PrivateKeyPath,
		"public_key", opts.PublicKeyPath)
	logger.Info(ctx, "Mount the private key as the server's signing.key_file secret or keep it offline for "+
		"`update-packager sign`; ship the public key with every client as public_key_file")

	return nil
}

// Sign computes the checksum and signature of an artifact and writes its manifest.
func Sign(ctx context.Context, opts *SignOptions) (*Manifest, error) {
	ctx = logger.WithName(ctx, "update-packager")

	if opts.ArtifactPath == "" {
		return nil, errArtifactRequired
	}

	if opts.PrivateKeyPath == "" {
		return nil, errKeyRequired
	}

	signer, err := signing.LoadSigner(config.SigningSettings{KeyFile: opts.PrivateKeyPath})
	if err != nil {
		return nil, err
	}

	manifest, err := signArtifact(opts.ArtifactPath, signer)
	if err != nil {
		return nil, err
	}

	manifestPath := opts.ManifestPath
	if manifestPath == "" {
		manifestPath = opts.ArtifactPath + ManifestSuffix
	}

	contents, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.WriteFile(manifestPath, contents, publicKeyMode); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logger.InfoKV(ctx, "Artifact signed",
		"artifact", opts.ArtifactPath,
		"checksum", manifest.Checksum,
		"manifest", manifestPath)
	logger.Infof(ctx, "Upload the artifact with the form field signature=%s", manifest.Signature)

	return manifest, nil
}

// signArtifact hashes and signs the file at path.
func signArtifact(path string, signer *signing.Signer) (*Manifest, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	checksum, err := signing.Digest(file)
	if err != nil {
		return nil, err
	}

	signature, err := signer.Sign(checksum)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		File:      filepath.Base(path),
		Size:      info.Size(),
		Checksum:  hex.EncodeToString(checksum),
		Signature: signature,
	}, nil
}
