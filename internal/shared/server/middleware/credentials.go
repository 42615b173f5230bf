package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const credentialKey = "credential"

// Credentials picks up the bearer credential from the access cookie, or from an
// Authorization header for non-browser callers. A missing credential is not an
// error here; the dashboard falls back to the least-privileged view.
func Credentials(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookieName != "" {
			if v, err := c.Cookie(cookieName); err == nil {
				token = strings.TrimSpace(v)
			}
		}
		if token == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			}
		}
		if token != "" {
			c.Set(credentialKey, token)
		}
		c.Next()
	}
}

// CredentialFromContext returns the bearer credential stored by Credentials.
func CredentialFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(credentialKey)
}
