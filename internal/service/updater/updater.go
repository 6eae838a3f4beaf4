package updater

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/logger"
	pb "github.com/oshokin/update-server/internal/pb/v1"
	"github.com/oshokin/update-server/internal/service/common"
	"github.com/oshokin/update-server/internal/version"
)

const (
	// DefaultFileMode is applied to the replaced executable.
	DefaultFileMode os.FileMode = 0o755

	// firstInstallVersion is reported when the target does not exist yet.
	firstInstallVersion = "0.0.0"

	// maxArtifactSize bounds a single download.
	maxArtifactSize = 1 << 30

	// versionCommandTimeout is the timeout for executing `<target> version`.
	versionCommandTimeout = 10 * time.Second
)

var (
	errBadHTTPStatus      = errors.New("unexpected http status")
	errArtifactTooLarge   = errors.New("artifact exceeds size limit")
	errSignatureMissing   = errors.New("offered release carries no signature")
	errInvalidChecksum    = errors.New("offered checksum is not a hex SHA-256 digest")
	errIncompleteResponse = errors.New("update response is missing the artifact location")
)

// Checker asks the server whether an update is offered.
type Checker interface {
	CheckForUpdate(ctx context.Context, request *pb.CheckForUpdateRequest) (*pb.CheckForUpdateResponse, error)
}

// Result describes one update cycle.
type Result struct {
	// CurrentVersion is the version the target ran before the cycle.
	CurrentVersion string
	// OfferedVersion is the offered release, empty when there was none.
	OfferedVersion string
	// Applied reports whether the target was replaced.
	Applied bool
}

// runner performs update cycles for one installation.
type runner struct {
	settings     *config.Client
	checker      Checker
	httpClient   *http.Client
	publicKeyPEM []byte
	// versionOverride skips detection when set.
	versionOverride string
}

// cycle checks for an update and, when apply is set, installs it.
func (u *runner) cycle(ctx context.Context, apply bool) (Result, error) {
	current, err := u.currentVersion(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("detect local version: %w", err)
	}

	result := Result{CurrentVersion: current}

	response, err := u.checker.CheckForUpdate(ctx, common.NewCheckRequest(u.settings, current))
	if err != nil {
		return result, err
	}

	if !response.GetUpdateAvailable() {
		logger.InfoKV(ctx, "No update offered", "version", current)

		return result, nil
	}

	result.OfferedVersion = response.GetVersion()

	logger.InfoKV(ctx, "Update offered",
		"current_version", current,
		"offered_version", result.OfferedVersion)

	if !apply {
		return result, nil
	}

	if err = u.install(ctx, response); err != nil {
		return result, fmt.Errorf("install %s: %w", result.OfferedVersion, err)
	}

	result.Applied = true

	logger.InfoKV(ctx, "Update applied",
		"target", u.settings.TargetPath,
		"version", result.OfferedVersion)

	return result, nil
}

// install downloads the offered artifact and replaces the target after
// verifying checksum and signature.
func (u *runner) install(ctx context.Context, response *pb.CheckForUpdateResponse) error {
	if response.GetArtifactLocation() == "" {
		return errIncompleteResponse
	}

	if response.GetSignature() == "" {
		return errSignatureMissing
	}

	checksum, err := hex.DecodeString(response.GetChecksum())
	if err != nil || len(checksum) != crypto.SHA256.Size() {
		return errInvalidChecksum
	}

	signature, err := base64.StdEncoding.DecodeString(response.GetSignature())
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	data, err := u.download(ctx, response.GetArtifactLocation())
	if err != nil {
		return err
	}

	options := goupdate.Options{
		TargetPath: u.settings.TargetPath,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Signature:  signature,
		Hash:       crypto.SHA256,
		Verifier:   goupdate.NewECDSAVerifier(),
	}

	if err = options.SetPublicKeyPEM(u.publicKeyPEM); err != nil {
		return fmt.Errorf("load public key: %w", err)
	}

	if err = ensureTarget(u.settings.TargetPath); err != nil {
		return err
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			logger.ErrorKV(ctx, "Rollback after failed update also failed", "error", rollbackErr)
		}

		return fmt.Errorf("apply update: %w", err)
	}

	return nil
}

// ensureTarget creates an empty target on first install; Apply renames the
// existing file away before moving the new one in.
func ensureTarget(target string) error {
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	return file.Close()
}

// download fetches the artifact body.
func (u *runner) download(ctx context.Context, location string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	response, err := u.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: %s", location, errBadHTTPStatus, response.Status)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	if len(data) > maxArtifactSize {
		return nil, errArtifactTooLarge
	}

	logger.DebugKV(ctx, "Downloaded artifact", "bytes", len(data))

	return data, nil
}

// currentVersion runs `<target> version`. A missing target is a first install.
func (u *runner) currentVersion(ctx context.Context) (string, error) {
	if u.versionOverride != "" {
		return u.versionOverride, nil
	}

	target := filepath.Clean(u.settings.TargetPath)

	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		logger.InfoKV(ctx, "Target not installed yet", "target", target)

		return firstInstallVersion, nil
	}

	cmdCtx, cancel := context.WithTimeout(ctx, versionCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, target, "version").Output()
	if err != nil {
		return "", fmt.Errorf("run %s version: %w", target, err)
	}

	return version.ParseFull(string(output))
}
