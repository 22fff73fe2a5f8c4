// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, drop storage, drop lifetimes, the expired-drop reaper, rate
// limiting, web protection and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Storage drivers.
const (
	StoreSQLite = "sqlite"
	StoreBolt   = "bolt"
)

// Rate-limit backends.
const (
	RateBackendMemory = "memory"
	RateBackendRedis  = "redis"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "zync-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects and locates the drop store.
type StoreConfig struct {
	Driver   string // sqlite|bolt
	DBPath   string // SQLite path
	BoltPath string // bbolt path
}

// DropConfig bounds drop lifetimes and token sizes.
type DropConfig struct {
	DefaultTTL time.Duration // applied when no expiry is requested
	MaxTTL     time.Duration // 0 disables the upper bound
	IDLength   int
	KeyLength  int
}

// ReaperConfig controls the background deletion of expired drops.
type ReaperConfig struct {
	Enabled bool
	Cron    string
}

// RateLimitConfig defines the sliding-window limiter on drop routes.
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	Max     int
	Cleanup time.Duration // idle purge interval for the memory backend
	Backend string        // memory|redis
}

// RedisConfig is used when RateLimit.Backend is "redis".
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Drops
	Store  StoreConfig
	Drops  DropConfig
	Reaper ReaperConfig

	// Rate limiting
	RateLimit RateLimitConfig
	Redis     RedisConfig

	// Web protection
	TrustedProxies []string
	CORS           CORSConfig
	Security       SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Drops
		Store: StoreConfig{
			Driver:   strings.ToLower(getenv("STORE_DRIVER", StoreSQLite)),
			DBPath:   getenv("DB_PATH", "zync.db"),
			BoltPath: getenv("BOLT_PATH", "zync.bolt"),
		},
		Drops: DropConfig{
			DefaultTTL: getdur("DROP_DEFAULT_TTL", 24*time.Hour),
			MaxTTL:     getdur("DROP_MAX_TTL", 48*time.Hour),
			IDLength:   getint("DROP_ID_LENGTH", 8),
			KeyLength:  getint("DROP_KEY_LENGTH", 6),
		},
		Reaper: ReaperConfig{
			Enabled: getbool("REAPER_ENABLED", false),
			Cron:    getenv("REAPER_CRON", "*/10 * * * *"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled: getbool("RATE_LIMIT_ENABLED", true),
			Window:  getdur("RATE_LIMIT_WINDOW", 60*time.Second),
			Max:     getint("RATE_LIMIT_MAX", 30),
			Cleanup: getdur("RATE_LIMIT_CLEANUP", 5*time.Minute),
			Backend: strings.ToLower(getenv("RATE_LIMIT_BACKEND", RateBackendMemory)),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			Prefix:   getenv("REDIS_PREFIX", "zync:rl"),
		},

		// Web protection
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "zync-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}

	switch cfg.Store.Driver {
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case StoreBolt:
		if strings.TrimSpace(cfg.Store.BoltPath) == "" {
			return cfg, errors.New("BOLT_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_DRIVER must be one of: sqlite, bolt")
	}

	if cfg.Drops.DefaultTTL <= 0 {
		return cfg, errors.New("DROP_DEFAULT_TTL must be > 0")
	}
	if cfg.Drops.MaxTTL < 0 {
		return cfg, errors.New("DROP_MAX_TTL must be >= 0")
	}
	if cfg.Drops.MaxTTL > 0 && cfg.Drops.DefaultTTL > cfg.Drops.MaxTTL {
		return cfg, errors.New("DROP_DEFAULT_TTL must not exceed DROP_MAX_TTL")
	}
	if cfg.Drops.IDLength < 4 || cfg.Drops.IDLength > 32 {
		return cfg, errors.New("DROP_ID_LENGTH must be between 4 and 32")
	}
	if cfg.Drops.KeyLength < 4 || cfg.Drops.KeyLength > 64 {
		return cfg, errors.New("DROP_KEY_LENGTH must be between 4 and 64")
	}
	if cfg.Reaper.Enabled && !gronx.IsValid(cfg.Reaper.Cron) {
		return cfg, errors.New("REAPER_CRON must be a valid cron expression")
	}

	if cfg.RateLimit.Window <= 0 {
		return cfg, errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.RateLimit.Max < 1 {
		return cfg, errors.New("RATE_LIMIT_MAX must be >= 1")
	}
	if cfg.RateLimit.Cleanup < 0 {
		return cfg, errors.New("RATE_LIMIT_CLEANUP must be >= 0")
	}
	switch cfg.RateLimit.Backend {
	case RateBackendMemory:
	case RateBackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return cfg, errors.New("REDIS_ADDR must not be empty when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return cfg, errors.New("RATE_LIMIT_BACKEND must be one of: memory, redis")
	}

	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
