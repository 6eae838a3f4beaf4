package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/oshokin/update-server/internal/domain/release"
)

// UpdateHandler serves the REST rendition of the update check.
type UpdateHandler struct {
	evaluator Evaluator
}

// NewUpdateHandler creates an UpdateHandler.
func NewUpdateHandler(evaluator Evaluator) *UpdateHandler {
	return &UpdateHandler{evaluator: evaluator}
}

// Check answers 200 with the offered release or 204 when there is none.
func (h *UpdateHandler) Check(ctx *gin.Context) {
	query := domain.Query{
		ClientID:       ctx.Query("client_id"),
		CurrentVersion: ctx.Query("version"),
		Scope: domain.Scope{
			ApplicationID: ctx.Param("application"),
			Channel:       ctx.Param("channel"),
			Platform:      domain.Platform(ctx.Param("platform")),
		},
	}

	decision, err := h.evaluator.Evaluate(ctx.Request.Context(), query)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	if !decision.UpdateAvailable() {
		ctx.Status(http.StatusNoContent)

		return
	}

	ctx.JSON(http.StatusOK, UpdateResponse{
		UpdateAvailable:  true,
		Version:          decision.Release.Version,
		ArtifactLocation: decision.ArtifactLocation,
		Signature:        decision.Signature,
		Checksum:         decision.Checksum,
	})
}
