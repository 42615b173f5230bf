package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/agents"
	"callinsights-backend/internal/calls"
	"callinsights-backend/internal/shared/config"
	"callinsights-backend/internal/shared/metrics"
	"callinsights-backend/internal/shared/server/middleware"
	"callinsights-backend/internal/shared/server/respond"
	"callinsights-backend/internal/uploads"
)

const apiPrefix = "/api/v1"

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config         config.Config
	CallsHandler   *calls.Handler
	AgentsHandler  *agents.Handler
	UploadsHandler *uploads.Handler
	RateLimiter    *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	secure := cfg.Env == "production" || cfg.Env == "staging"
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Session(cfg.SessionCookie, secure),
		middleware.Credentials(cfg.AccessCookie),
		middleware.LoginGate(middleware.LoginGateConfig{
			LoginURL:     cfg.LoginURL,
			CallbackPath: cfg.AuthCallbackPath,
			CookieName:   cfg.AccessCookie,
			PublicPaths:  []string{cfg.AuthCallbackPath, accessDeniedPath},
			Skip:         []string{apiPrefix + "/", "/metrics"},
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.JobsRateLimitGroup: {Rate: cfg.JobsRatePerSec, Burst: cfg.JobsBurst},
			},
			GroupFor: rateLimitGroup,
			Limiter:  deps.RateLimiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())
	registerAuthRoutes(r, cfg.AuthCallbackPath, cfg.AccessCookie, secure)

	api := r.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.CallsHandler != nil {
		deps.CallsHandler.RegisterRoutes(api)
	}
	if deps.AgentsHandler != nil {
		deps.AgentsHandler.RegisterRoutes(api)
	}
	if deps.UploadsHandler != nil {
		deps.UploadsHandler.RegisterRoutes(api)
	}

	return r
}

// Only job submission is limited; everything else is cheap session state.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.Request.URL.Path == apiPrefix+"/dashboard/jobs" {
		return middleware.JobsRateLimitGroup
	}
	return "NONE"
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
