package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/shared/server/middleware"
	"callinsights-backend/internal/shared/telemetry"
)

const (
	accessDeniedPath = "/auth/access-denied"
	// the external login hands the token back for roughly a working day
	accessCookieMaxAge = 12 * 60 * 60
)

func registerAuthRoutes(r *gin.Engine, callbackPath, cookieName string, secure bool) {
	if callbackPath == "" {
		callbackPath = "/auth/callback/"
	}
	r.GET(callbackPath, authCallback(cookieName, secure))
	r.GET(accessDeniedPath, func(c *gin.Context) {
		c.String(http.StatusForbidden, "Access denied")
	})
}

// authCallback stores the token handed back by the external login in the
// access cookie and sends the browser to the dashboard.
func authCallback(cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("access_token"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			telemetry.Warn("auth.callback_missing_token", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
			})
			c.Redirect(http.StatusFound, accessDeniedPath)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, token, accessCookieMaxAge, "/", "", secure, false)
		c.Redirect(http.StatusFound, "/")
	}
}
