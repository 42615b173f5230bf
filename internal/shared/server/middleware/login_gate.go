package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/shared/telemetry"
)

// DefaultPublicPaths never require a credential.
var DefaultPublicPaths = []string{"/auth/callback/", "/auth/access-denied"}

type LoginGateConfig struct {
	LoginURL     string
	CallbackPath string
	CookieName   string
	PublicPaths  []string
	// Skip lists path prefixes the gate ignores entirely, such as the API.
	Skip []string
}

// LoginGate redirects page requests that carry no access cookie to the external
// login, asking it to come back to the callback path on this origin.
func LoginGate(cfg LoginGateConfig) gin.HandlerFunc {
	if len(cfg.PublicPaths) == 0 {
		cfg.PublicPaths = DefaultPublicPaths
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if cfg.LoginURL == "" || hasAnyPrefix(path, cfg.Skip) || hasAnyPrefix(path, cfg.PublicPaths) {
			c.Next()
			return
		}
		if token, err := c.Cookie(cfg.CookieName); err == nil && strings.TrimSpace(token) != "" {
			c.Next()
			return
		}

		target := LoginURL(cfg.LoginURL, RequestOrigin(c.Request), cfg.CallbackPath)
		telemetry.Info("auth.login_redirect", map[string]any{
			"request_id": RequestIDFromContext(c),
			"path":       path,
			"login_url":  target,
		})
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// LoginURL builds the external login address with a redirect back to callbackPath.
func LoginURL(loginURL, origin, callbackPath string) string {
	redirectTo := strings.TrimRight(origin, "/") + callbackPath
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "redirect_uri=" + url.QueryEscape(redirectTo)
}

// RequestOrigin reconstructs scheme://host for the incoming request.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
