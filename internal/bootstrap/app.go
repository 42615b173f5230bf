package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"callinsights-backend/internal/access"
	"callinsights-backend/internal/agents"
	"callinsights-backend/internal/callapi"
	"callinsights-backend/internal/calls"
	"callinsights-backend/internal/dashboard"
	"callinsights-backend/internal/jobs"
	"callinsights-backend/internal/sessions"
	"callinsights-backend/internal/shared/config"
	"callinsights-backend/internal/shared/server"
	"callinsights-backend/internal/shared/server/middleware"
	"callinsights-backend/internal/shared/storage/db"
	"callinsights-backend/internal/shared/storage/object"
	localstore "callinsights-backend/internal/shared/storage/object/local"
	s3store "callinsights-backend/internal/shared/storage/object/s3"
	"callinsights-backend/internal/uploads"
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	RoleCache access.RoleCache
	Remote    *callapi.Client
	Runs      jobs.Repo
	Sessions  *sessions.Registry
	Calls     *calls.Service
	Limiter   *middleware.RateLimiter

	CallsHandler   *calls.Handler
	AgentsHandler  *agents.Handler
	UploadsHandler *uploads.Handler

	closers []func() error
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	cache, err := buildRoleCache(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.RoleCache = cache

	remote, err := buildRemote(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Remote = remote

	app.Limiter = middleware.NewRateLimiter(nil)
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		CallsHandler:   app.CallsHandler,
		AgentsHandler:  app.AgentsHandler,
		UploadsHandler: app.UploadsHandler,
		RateLimiter:    app.Limiter,
	})

	return app, nil
}

// Close evicts live sessions and releases connections.
func (a *App) Close() error {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory job history")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory job history: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory job history: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRoleCache(cfg config.Config) (access.RoleCache, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return access.NewMemoryCache(cfg.RoleCacheTTL, nil), nil
	}
	cache, err := access.NewRedisCache(cfg.RedisURL, cfg.RoleCacheTTL)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unavailable; using in-process role cache: %v", err)
			return access.NewMemoryCache(cfg.RoleCacheTTL, nil), nil
		}
		return nil, err
	}
	return cache, nil
}

// buildRemote returns nil without a base URL in dev; the dashboard then
// reports the analysis service as unavailable.
func buildRemote(cfg config.Config) (*callapi.Client, error) {
	if strings.TrimSpace(cfg.AnalysisBaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: ANALYSIS_API_BASE_URL empty; remote analysis disabled")
			return nil, nil
		}
		return nil, fmt.Errorf("ANALYSIS_API_BASE_URL is required")
	}
	return callapi.NewClient(cfg.AnalysisBaseURL, cfg.AnalysisTimeout)
}

// defaultBucketIdle bounds rate-limit buckets when sessions never expire.
const defaultBucketIdle = 30 * time.Minute

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.Runs = &jobs.PGRepo{DB: app.DB}
	} else {
		app.Runs = jobs.NewMemoryRepo()
	}
	if closer, ok := app.RoleCache.(interface{ Close() error }); ok {
		app.closers = append(app.closers, closer.Close)
	}

	bucketIdle := cfg.SessionIdleTTL
	if bucketIdle <= 0 {
		bucketIdle = defaultBucketIdle
	}

	resolver := &access.Resolver{Cache: app.RoleCache, Timeout: cfg.AnalysisTimeout}
	svc := &calls.Service{
		Runs:          app.Runs,
		ModelOption:   cfg.ModelOption,
		SubmitTimeout: cfg.AnalysisTimeout,
	}
	agentsSvc := &agents.Service{}
	var uploadRemote uploads.Remote
	// Interfaces stay nil when the client is absent so callers can detect it.
	if app.Remote != nil {
		resolver.Roles = app.Remote
		svc.Remote = app.Remote
		agentsSvc.Source = app.Remote
		uploadRemote = app.Remote
	}

	svc.Sessions = sessions.NewRegistry(sessions.Options{
		Dashboard: dashboard.Options{TickInterval: cfg.ProgressTick},
		Resolver:  resolver,
		IdleTTL:   cfg.SessionIdleTTL,
		OnEvict:   svc.Abandon,
		OnSweep:   func() { app.Limiter.Prune(bucketIdle) },
	})

	app.Sessions = svc.Sessions
	app.Calls = svc
	app.CallsHandler = calls.NewHandler(svc, cfg.LoginURL, cfg.AuthCallbackPath, 0)
	app.AgentsHandler = agents.NewHandler(agentsSvc)
	app.UploadsHandler = uploads.NewHandler(app.Store, uploadRemote, cfg.MaxUploadBytes, cfg.ModelOption)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
