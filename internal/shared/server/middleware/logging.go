package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can carry them.
const (
	JobIDKey            = "jobId"
	StatusTransitionKey = "statusTransition"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"session_id":        SessionIDFromContext(c),
			"job_id":            c.GetString(JobIDKey),
			"status_transition": c.GetString(StatusTransitionKey),
			"has_credential":    CredentialFromContext(c) != "",
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"client_ip":         c.ClientIP(),
		})
	}
}
