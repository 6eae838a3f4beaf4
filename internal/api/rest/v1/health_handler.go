package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the registry backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /healthz.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Check answers 200 when the registry backend responds, 503 otherwise.
func (h *HealthHandler) Check(ctx *gin.Context) {
	if err := h.pinger.Ping(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})

		return
	}

	ctx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
