package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone     AuthMode = "none"     // No authentication required (default)
	AuthModeLocal    AuthMode = "local"    // Local user database with sessions
	AuthModeSupabase AuthMode = "supabase" // Supabase-issued JWTs
)

type StoreBackend string

const (
	StoreBackendLocal    StoreBackend = "local"    // Reading records in the local SQLite database
	StoreBackendSupabase StoreBackend = "supabase" // Reading records in Supabase Postgres
)

type SyncMode string

const (
	SyncModeReplace SyncMode = "replace" // Whole highlight list per write
	SyncModePatch   SyncMode = "patch"   // One store operation per highlight change
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Store
		Auth
		Highlights
		Catalog
		Requests
		Tasks
		CORS
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Log struct {
		Level  string
		Format string // "text" or "json"
	}
	Database struct {
		Path string
	}
	Store struct {
		Backend     StoreBackend
		SupabaseDSN string
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Failed attempts before lockout (default: 5)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		SupabaseJWTSecret string
	}
	Highlights struct {
		DefaultColor   string
		SyncMode       SyncMode
		PersistTimeout time.Duration // Zero disables the per-write timeout
	}
	Catalog struct {
		CacheTTL time.Duration
		SeedFile string
	}
	Requests struct {
		EmailJSEndpoint   string
		EmailJSServiceID  string
		EmailJSTemplateID string
		EmailJSPublicKey  string
		EmailJSPrivateKey string
		SweepSchedule     string // Cron format
		MaxAttempts       int
		Retention         time.Duration
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	CORS struct {
		AllowedOrigins []string
	}
)

func NewConfig() *Config {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("store_backend", string(StoreBackendLocal))
	v.SetDefault("supabase_db_url", "")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_token_expiry", "720h")    // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("supabase_jwt_secret", "")

	v.SetDefault("highlight_default_color", DefaultHighlightColor)
	v.SetDefault("highlight_sync_mode", string(SyncModeReplace))
	v.SetDefault("highlight_persist_timeout", "10s")

	v.SetDefault("catalog_cache_ttl", "5m")
	v.SetDefault("catalog_seed_file", "")

	v.SetDefault("emailjs_endpoint", DefaultEmailJSEndpoint)
	v.SetDefault("emailjs_service_id", "")
	v.SetDefault("emailjs_template_id", "")
	v.SetDefault("emailjs_public_key", "")
	v.SetDefault("emailjs_private_key", "")
	v.SetDefault("request_sweep_schedule", "*/15 * * * *")
	v.SetDefault("request_max_attempts", 5)
	v.SetDefault("request_retention", "720h")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("cors_allowed_origins", "http://localhost:5173")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Store: Store{
			Backend:     StoreBackend(v.GetString("STORE_BACKEND")),
			SupabaseDSN: v.GetString("SUPABASE_DB_URL"),
		},
		Auth: Auth{
			Mode:              AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:     v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:       v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:     v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
			SupabaseJWTSecret: v.GetString("SUPABASE_JWT_SECRET"),
		},
		Highlights: Highlights{
			DefaultColor:   v.GetString("HIGHLIGHT_DEFAULT_COLOR"),
			SyncMode:       SyncMode(v.GetString("HIGHLIGHT_SYNC_MODE")),
			PersistTimeout: v.GetDuration("HIGHLIGHT_PERSIST_TIMEOUT"),
		},
		Catalog: Catalog{
			CacheTTL: v.GetDuration("CATALOG_CACHE_TTL"),
			SeedFile: v.GetString("CATALOG_SEED_FILE"),
		},
		Requests: Requests{
			EmailJSEndpoint:   v.GetString("EMAILJS_ENDPOINT"),
			EmailJSServiceID:  v.GetString("EMAILJS_SERVICE_ID"),
			EmailJSTemplateID: v.GetString("EMAILJS_TEMPLATE_ID"),
			EmailJSPublicKey:  v.GetString("EMAILJS_PUBLIC_KEY"),
			EmailJSPrivateKey: v.GetString("EMAILJS_PRIVATE_KEY"),
			SweepSchedule:     v.GetString("REQUEST_SWEEP_SCHEDULE"),
			MaxAttempts:       v.GetInt("REQUEST_MAX_ATTEMPTS"),
			Retention:         v.GetDuration("REQUEST_RETENTION"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Auth.Mode {
	case AuthModeNone, AuthModeLocal:
	case AuthModeSupabase:
		if c.Auth.SupabaseJWTSecret == "" {
			errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required when AUTH_MODE=supabase"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.Auth.Mode))
	}

	switch c.Store.Backend {
	case StoreBackendLocal:
	case StoreBackendSupabase:
		if c.Store.SupabaseDSN == "" {
			errs = append(errs, errors.New("SUPABASE_DB_URL is required when STORE_BACKEND=supabase"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	switch c.Highlights.SyncMode {
	case SyncModeReplace, SyncModePatch:
	default:
		errs = append(errs, fmt.Errorf("unknown HIGHLIGHT_SYNC_MODE %q", c.Highlights.SyncMode))
	}
	return errors.Join(errs...)
}
