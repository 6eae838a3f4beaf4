package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/update-server/internal/auth"
	domain "github.com/oshokin/update-server/internal/domain/release"
	"github.com/oshokin/update-server/internal/logger"
	"github.com/oshokin/update-server/internal/storage"
)

var (
	// errMissingToken is returned when the Authorization header carries no bearer token.
	errMissingToken = errors.New("bearer token is required")
	// errMissingFile is returned when a release upload has no artifact.
	errMissingFile = errors.New("artifact file is required")
)

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, errMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, errMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	switch domain.Classify(err) {
	case domain.CategoryClient:
		return http.StatusBadRequest
	case domain.CategoryNotFound:
		return http.StatusNotFound
	case domain.CategoryIntegrity:
		return http.StatusConflict
	case domain.CategoryBackend:
		return http.StatusServiceUnavailable
	case domain.CategoryInternal:
	}

	return http.StatusInternalServerError
}

// abortWithError writes err as an ErrorResponse and stops the handler chain.
// Server-side failures are logged and their details hidden from the caller.
func abortWithError(ctx *gin.Context, err error) {
	code := statusFor(err)
	message := err.Error()

	switch {
	case code >= http.StatusInternalServerError:
		logger.ErrorKV(ctx.Request.Context(), "request failed",
			"error", err,
			"method", ctx.Request.Method,
			"route", ctx.FullPath())

		message = http.StatusText(code)
	case code == http.StatusConflict:
		logger.WarnKV(ctx.Request.Context(), "request conflicts with stored state",
			"error", err,
			"route", ctx.FullPath())
	}

	ctx.AbortWithStatusJSON(code, ErrorResponse{Message: message})
}

// abortWithValidation writes a 400 for a malformed request body.
func abortWithValidation(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "validation failed: " + err.Error()})
}
