package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/update-server/internal/auth"
	"github.com/oshokin/update-server/internal/logger"
)

// AuthHandler issues administrator sessions.
type AuthHandler struct {
	authenticator auth.Authenticator
	sessions      SessionManager
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authenticator auth.Authenticator, sessions SessionManager) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		sessions:      sessions,
	}
}

// Login authenticates the caller and returns a session token. Only
// administrators receive one.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var request LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	if err := request.Validate(); err != nil {
		abortWithValidation(ctx, err)

		return
	}

	identity, err := h.authenticator.Authenticate(ctx.Request.Context(), request.Username, request.Password)
	if err != nil {
		logger.InfoKV(ctx.Request.Context(), "login rejected", "username", request.Username, "error", err)
		abortWithError(ctx, err)

		return
	}

	if err = h.sessions.Authorize(identity); err != nil {
		logger.WarnKV(ctx.Request.Context(), "login by non-administrator", "username", identity.Username)
		abortWithError(ctx, err)

		return
	}

	token, expiresAt, err := h.sessions.Issue(identity)
	if err != nil {
		abortWithError(ctx, err)

		return
	}

	logger.InfoKV(ctx.Request.Context(), "administrator logged in",
		"username", identity.Username,
		"provider", identity.Provider)

	ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
