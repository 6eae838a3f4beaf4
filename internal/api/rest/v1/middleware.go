package v1

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/update-server/internal/auth"
	"github.com/oshokin/update-server/internal/logger"
)

// identityKey is the gin context key of the authenticated administrator.
const identityKey = "identity"

// unmatchedRoute labels requests that hit no route, keeping metric cardinality bounded.
const unmatchedRoute = "unmatched"

// requestLogger logs every request and reports it to the metrics observer.
func requestLogger(observer HTTPObserver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		code := ctx.Writer.Status()

		if observer != nil {
			observer.ObserveHTTPRequest(ctx.Request.Method, route, code)
		}

		logger.DebugKV(ctx.Request.Context(), "http request",
			"method", ctx.Request.Method,
			"route", route,
			"code", code,
			"elapsed", time.Since(started))
	}
}

// requireAdmin verifies the bearer session token and the admin allowlist.
func requireAdmin(sessions SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(ctx, errMissingToken)

			return
		}

		identity, err := sessions.Verify(strings.TrimSpace(token))
		if err != nil {
			abortWithError(ctx, err)

			return
		}

		if err = sessions.Authorize(identity); err != nil {
			logger.WarnKV(ctx.Request.Context(), "administrative access denied",
				"username", identity.Username,
				"provider", identity.Provider)

			abortWithError(ctx, err)

			return
		}

		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

// currentIdentity returns the administrator set by requireAdmin.
func currentIdentity(ctx *gin.Context) *auth.Identity {
	value, ok := ctx.Get(identityKey)
	if !ok {
		return nil
	}

	identity, _ := value.(*auth.Identity)

	return identity
}

// actorName is the username logged with administrative changes.
func actorName(ctx *gin.Context) string {
	if identity := currentIdentity(ctx); identity != nil {
		return identity.Username
	}

	return ""
}
