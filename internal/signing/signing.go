package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/update-server/internal/config"
)

// PEM block types.
const (
	privateKeyBlock      = "EC PRIVATE KEY"
	pkcs8PrivateKeyBlock = "PRIVATE KEY"
	publicKeyBlock       = "PUBLIC KEY"
)

var (
	// ErrKeyNotConfigured is returned when no signing key source is set.
	ErrKeyNotConfigured = errors.New("signing key is not configured")
	// ErrInvalidKey is returned for malformed or non-ECDSA keys.
	ErrInvalidKey = errors.New("invalid signing key")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer signs artifact digests with a private key.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner wraps key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// LoadSigner reads the key named by settings. Without a configured source it
// returns ErrKeyNotConfigured.
func LoadSigner(settings config.SigningSettings) (*Signer, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case settings.KeyFile != "":
		data, err = os.ReadFile(filepath.Clean(settings.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
	case settings.KeyEnv != "":
		value := strings.TrimSpace(os.Getenv(settings.KeyEnv))
		if value == "" {
			return nil, fmt.Errorf("%w: %s is empty", ErrKeyNotConfigured, settings.KeyEnv)
		}

		data = []byte(value)
	default:
		return nil, ErrKeyNotConfigured
	}

	key, err := ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}

	return NewSigner(key), nil
}

// Sign returns the base64 signature of a SHA-256 checksum.
func (s *Signer) Sign(checksum []byte) (string, error) {
	signature, err := ecdsa.SignASN1(rand.Reader, s.key, checksum)
	if err != nil {
		return "", fmt.Errorf("sign checksum: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// PublicKey returns the verifying key.
func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// Verify checks a base64 signature over checksum.
func Verify(publicKey *ecdsa.PublicKey, checksum []byte, signature string) error {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if !ecdsa.VerifyASN1(publicKey, checksum, raw) {
		return ErrInvalidSignature
	}

	return nil
}

// Digest returns the SHA-256 checksum of everything read from r.
func Digest(r io.Reader) ([]byte, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, fmt.Errorf("hash artifact: %w", err)
	}

	return hasher.Sum(nil), nil
}

// GenerateKey creates a P-256 key pair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return key, nil
}

// EncodePrivateKey renders key as an "EC PRIVATE KEY" PEM block.
func EncodePrivateKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: privateKeyBlock, Bytes: der}), nil
}

// EncodePublicKey renders key as a PKIX "PUBLIC KEY" PEM block.
func EncodePublicKey(key *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: publicKeyBlock, Bytes: der}), nil
}

// ParsePrivateKey reads an EC or PKCS#8 PEM private key.
func ParsePrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}

	switch block.Type {
	case privateKeyBlock:
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}

		return key, nil
	case pkcs8PrivateKeyBlock:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}

		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an ECDSA key", ErrInvalidKey)
		}

		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}

// ParsePublicKey reads a PKIX PEM public key.
func ParsePublicKey(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyBlock {
		return nil, fmt.Errorf("%w: no PUBLIC KEY block", ErrInvalidKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an ECDSA key", ErrInvalidKey)
	}

	return key, nil
}
