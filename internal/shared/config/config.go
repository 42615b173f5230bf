package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultModelOption = "AzureOpenAI"

// Config holds application configuration.
type Config struct {
	Port            string   `yaml:"port"`
	Env             string   `yaml:"env"`
	CORSAllowOrigin []string `yaml:"cors_allow_origins"`

	AnalysisBaseURL string        `yaml:"analysis_api_base_url"`
	AnalysisTimeout time.Duration `yaml:"analysis_api_timeout"`
	ModelOption     string        `yaml:"model_option"`

	LoginURL         string `yaml:"login_url"`
	AuthCallbackPath string `yaml:"auth_callback_path"`
	AccessCookie     string `yaml:"access_cookie"`
	SessionCookie    string `yaml:"session_cookie"`

	ObjectStoreType string `yaml:"object_store"`
	LocalStoreDir   string `yaml:"local_store_dir"`
	AWSRegion       string `yaml:"aws_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Prefix        string `yaml:"s3_prefix"`
	SSEKMSKeyID     string `yaml:"sse_kms_key_id"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`

	DatabaseURL string `yaml:"database_url"`

	RedisURL     string        `yaml:"redis_url"`
	RoleCacheTTL time.Duration `yaml:"role_cache_ttl"`

	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	ProgressTick   time.Duration `yaml:"progress_tick"`

	JobsRatePerSec float64 `yaml:"jobs_rate_per_sec"`
	JobsBurst      int     `yaml:"jobs_burst"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             "8080",
		Env:              "dev",
		CORSAllowOrigin:  []string{"http://localhost:3000"},
		AnalysisTimeout:  120 * time.Second,
		ModelOption:      DefaultModelOption,
		AuthCallbackPath: "/auth/callback/",
		AccessCookie:     "access_token",
		SessionCookie:    "dash_session",
		ObjectStoreType:  "local",
		LocalStoreDir:    "./data",
		MaxUploadBytes:   100 << 20,
		RoleCacheTTL:     15 * time.Minute,
		SessionIdleTTL:   2 * time.Hour,
		ProgressTick:     100 * time.Millisecond,
		JobsRatePerSec:   0.5,
		JobsBurst:        3,
	}
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			log.Printf("config file %s ignored: %v", path, err)
		}
	}
	applyEnv(&cfg)

	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	if strings.TrimSpace(cfg.ModelOption) == "" {
		cfg.ModelOption = DefaultModelOption
	}
	if cfg.Env == "production" && cfg.AnalysisBaseURL == "" {
		log.Printf("ANALYSIS_API_BASE_URL is required in production")
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	}

	cfg.AnalysisBaseURL = strings.TrimRight(getEnv("ANALYSIS_API_BASE_URL", cfg.AnalysisBaseURL), "/")
	cfg.AnalysisTimeout = getEnvSeconds("ANALYSIS_API_TIMEOUT_SECONDS", cfg.AnalysisTimeout)
	cfg.ModelOption = getEnv("MODEL_OPTION", cfg.ModelOption)

	cfg.LoginURL = getEnv("LOGIN_URL", cfg.LoginURL)
	cfg.AuthCallbackPath = getEnv("AUTH_CALLBACK_PATH", cfg.AuthCallbackPath)
	cfg.AccessCookie = getEnv("ACCESS_COOKIE", cfg.AccessCookie)
	cfg.SessionCookie = getEnv("SESSION_COOKIE", cfg.SessionCookie)

	cfg.ObjectStoreType = getEnv("OBJECT_STORE", cfg.ObjectStoreType)
	cfg.LocalStoreDir = getEnv("LOCAL_STORE_DIR", cfg.LocalStoreDir)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Prefix = getEnv("S3_PREFIX", cfg.S3Prefix)
	cfg.SSEKMSKeyID = getEnv("SSE_KMS_KEY_ID", cfg.SSEKMSKeyID)
	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RoleCacheTTL = getEnvDuration("ROLE_CACHE_TTL", cfg.RoleCacheTTL)
	cfg.SessionIdleTTL = getEnvDuration("SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	cfg.ProgressTick = getEnvDuration("PROGRESS_TICK", cfg.ProgressTick)

	cfg.JobsRatePerSec = getEnvFloat("JOBS_RATE_PER_SEC", cfg.JobsRatePerSec)
	cfg.JobsBurst = getEnvInt("JOBS_BURST", cfg.JobsBurst)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return v
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("config env %s invalid seconds: %q", key, raw)
		return def
	}
	return time.Duration(v) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
