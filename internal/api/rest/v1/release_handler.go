package v1

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/registry"
	"github.com/oshokin/update-server/internal/semver"
	"github.com/oshokin/update-server/internal/storage"
)

// ReleaseHandler serves the administrative registry API.
type ReleaseHandler struct {
	registry Registry
	storage  storage.Storage
	signer   Signer
}

// NewReleaseHandler creates a ReleaseHandler. signer may be nil, in which
// case uploads must carry their own signature to be offered to clients.
func NewReleaseHandler(registry Registry, storage storage.Storage, signer Signer) *ReleaseHandler {
	return &ReleaseHandler{
		registry: registry,
		storage:  storage,
		signer:   signer,
	}
}

// CreateApplication registers an application.
func (h *ReleaseHandler) CreateApplication(ctx *gin.Context) {
	var request CreateApplicationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	if err := request.Validate(); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	app, err := h.registry.CreateApplication(ctx.Request.Context(), request.ID, request.Name)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "application created", "application", app.ID, "actor", actorName(ctx))

	ctx.JSON(http.StatusCreated, toApplicationResponse(app))
}

// ListApplications returns every application.
func (h *ReleaseHandler) ListApplications(ctx *gin.Context) {
	apps, err := h.registry.ListApplications(ctx.Request.Context())
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	response := make([]ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		response = append(response, toApplicationResponse(app))
	}

	ctx.JSON(http.StatusOK, response)
}

// CreateChannel adds a channel to an application.
func (h *ReleaseHandler) CreateChannel(ctx *gin.Context) {
	var request CreateChannelRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	if err := request.Validate(); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	channel, err := h.registry.CreateChannel(ctx.Request.Context(), ctx.Param("application"), request.Name)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "channel created",
		"application", channel.ApplicationID,
		"channel", channel.Name,
		"actor", actorName(ctx))

	ctx.JSON(http.StatusCreated, toChannelResponse(channel))
}

// ListChannels returns the channels of an application.
func (h *ReleaseHandler) ListChannels(ctx *gin.Context) {
	channels, err := h.registry.ListChannels(ctx.Request.Context(), ctx.Param("application"))
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	response := make([]ChannelResponse, 0, len(channels))
	for _, channel := range channels {
		response = append(response, toChannelResponse(channel))
	}

	ctx.JSON(http.StatusOK, response)
}

// ListReleases returns the live releases of a scope, newest first.
func (h *ReleaseHandler) ListReleases(ctx *gin.Context) {
	scope := domain.Scope{
		ApplicationID: ctx.Param("application"),
		Channel:       ctx.Param("channel"),
		Platform:      domain.Platform(ctx.Param("platform")),
	}

	releases, err := h.registry.ListReleases(ctx.Request.Context(), scope)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	response := make([]ReleaseResponse, 0, len(releases))
	for _, rel := range releases {
		response = append(response, toReleaseResponse(rel))
	}

	ctx.JSON(http.StatusOK, response)
}

// Register stores an uploaded artifact and publishes it as a release.
//
// The artifact is stored under an upload-unique key first, so a rejected
// registration never touches the artifact of an existing release. Without a
// signature in the form the configured signer signs the stored checksum.
func (h *ReleaseHandler) Register(ctx *gin.Context) {
	form := RegisterReleaseForm{
		Platform:  ctx.PostForm("platform"),
		Version:   ctx.PostForm("version"),
		Signature: strings.TrimSpace(ctx.PostForm("signature")),
	}

	if err := form.Validate(); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	scope, err := domain.Scope{
		ApplicationID: ctx.Param("application"),
		Channel:       ctx.Param("channel"),
		Platform:      domain.Platform(form.Platform),
	}.Validate()
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	version, err := semver.Parse(form.Version)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		abortWithError(ctx, fmt.Errorf("%w: %w", errMissingFile, err))

		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(ctx, fmt.Errorf("open upload: %w", err))

		return
	}
	defer file.Close()

	key := storage.ArtifactKey(scope, version.String(), uuid.NewString(), fileHeader.Filename)

	object, err := h.storage.Put(ctx.Request.Context(), key, file)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	signature := form.Signature
	if signature == "" && h.signer != nil {
		if signature, err = h.signer.Sign(object.Checksum); err != nil {
			h.discardUpload(ctx.Request.Context(), object.Key)
			abortWithError(ctx, err)

			return
		}
	}

	if signature == "" {
		logger.WarnKV(ctx.Request.Context(), "release registered without signature; it will not be offered",
			"scope", scope.String(),
			"version", version.String())
	}

	rel, err := h.registry.Register(ctx.Request.Context(), registry.RegisterInput{
		Scope:       scope,
		Version:     version.String(),
		ArtifactRef: object.Key,
		Checksum:    hex.EncodeToString(object.Checksum),
		Signature:   signature,
	})
	if err != nil {
		h.discardUpload(ctx.Request.Context(), object.Key)
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "release uploaded",
		"release_id", rel.ID,
		"size", object.Size,
		"actor", actorName(ctx))

	ctx.JSON(http.StatusCreated, toReleaseResponse(rel))
}

// discardUpload removes an artifact whose registration failed. The request
// may already be canceled, so deletion runs on a detached context.
func (h *ReleaseHandler) discardUpload(ctx context.Context, key string) {
	if err := h.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.ErrorKV(ctx, "failed to remove artifact of rejected release",
			"key", key,
			"error", err)
	}
}

// Promote raises the rollout percentage of a release.
func (h *ReleaseHandler) Promote(ctx *gin.Context) {
	var request PromoteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	if err := request.Validate(); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	rel, err := h.registry.Promote(ctx.Request.Context(), ctx.Param("id"), *request.Percentage)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "release promoted",
		"release_id", rel.ID,
		"rollout_percentage", rel.RolloutPercentage,
		"actor", actorName(ctx))

	ctx.JSON(http.StatusOK, toReleaseResponse(rel))
}

// Retract withdraws a release from evaluation.
func (h *ReleaseHandler) Retract(ctx *gin.Context) {
	releaseID := ctx.Param("id")

	if err := h.registry.Retract(ctx.Request.Context(), releaseID); err != nil {
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "release retracted", "release_id", releaseID, "actor", actorName(ctx))

	ctx.Status(http.StatusNoContent)
}
