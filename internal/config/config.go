package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/catalogo-muebles/internal/common"
)

// Data source names accepted by CATALOG_DATA_SOURCE.
const (
	DataSourcePostgres = "postgres"
	DataSourceStatic   = "static"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string `validate:"required"`
	Port               string `validate:"required"`
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CatalogDataSource      string        `validate:"oneof=postgres static"`
	CatalogDefaultPageSize int           `validate:"gte=1,ltefield=CatalogMaxPageSize"`
	CatalogMaxPageSize     int           `validate:"gte=1,lte=500"`
	CatalogMaxPriceDefault int64         `validate:"gt=0"`
	CatalogCacheTTL        time.Duration `validate:"gte=0"`
	CatalogSourceTimeout   time.Duration `validate:"gt=0"`
	CatalogWarmInterval    time.Duration `validate:"gte=0"`

	CircuitDBMinRequests  int           `validate:"gte=1"`
	CircuitDBFailureRatio float64       `validate:"gt=0,lte=1"`
	CircuitDBOpenFor      time.Duration `validate:"gt=0"`

	RateLimitMax    int           `validate:"gte=0"`
	RateLimitWindow time.Duration `validate:"gt=0"`

	DBAutoMigrate          bool
	WorkerConcurrency      int `validate:"gte=1"`
	SecurityHeadersEnabled bool
	HTTPBodyLimitBytes     int64         `validate:"gt=0"`
	HTTPShutdownTimeout    time.Duration `validate:"gt=0"`

	LogFormat            string
	LogLevel             string
	MetricsNamespace     string `validate:"required"`
	MetricsEnabled       bool
	MetricsBucketsMS     string
	TracingEnabled       bool
	TracingExporter      string
	TracingEndpoint      string
	TracingSamplingRatio float64 `validate:"gte=0,lte=1"`
	PprofEnabled         bool
	PprofUser            string
	PprofPass            string
	HealthDBTimeout      time.Duration
	HealthRedisTimeout   time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CatalogDataSource:      strings.ToLower(strings.TrimSpace(k.String("CATALOG_DATA_SOURCE"))),
		CatalogDefaultPageSize: common.AtoiDefault(k.String("CATALOG_DEFAULT_PAGE_SIZE"), 9),
		CatalogMaxPageSize:     common.AtoiDefault(k.String("CATALOG_MAX_PAGE_SIZE"), 48),
		CatalogMaxPriceDefault: int64(common.AtoiDefault(k.String("CATALOG_MAX_PRICE_DEFAULT"), 100000)),
		CatalogCacheTTL:        parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogSourceTimeout:   parseDuration(k.String("CATALOG_SOURCE_TIMEOUT"), "3s"),
		CatalogWarmInterval:    parseDuration(k.String("CATALOG_WARM_INTERVAL"), "5m"),

		CircuitDBMinRequests:  common.AtoiDefault(k.String("CIRCUIT_DB_MIN_REQUESTS"), 5),
		CircuitDBFailureRatio: parseFloat(k.String("CIRCUIT_DB_FAILURE_RATIO"), 0.5),
		CircuitDBOpenFor:      parseDuration(k.String("CIRCUIT_DB_OPEN_FOR"), "30s"),

		RateLimitMax:    common.AtoiDefault(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		DBAutoMigrate:          parseBool(k.String("DB_AUTO_MIGRATE"), false),
		WorkerConcurrency:      common.AtoiDefault(k.String("WORKER_CONCURRENCY"), 5),
		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
		HTTPBodyLimitBytes:     int64(common.AtoiDefault(k.String("HTTP_BODY_LIMIT_BYTES"), 65536)),
		HTTPShutdownTimeout:    parseDuration(k.String("HTTP_SHUTDOWN_TIMEOUT"), "10s"),

		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "catalogo"),
		MetricsEnabled:       parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBucketsMS:     strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		TracingEnabled:       parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:      valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		PprofEnabled:         parseBool(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:            strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:            strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		HealthDBTimeout:      time.Duration(common.AtoiDefault(k.String("HEALTH_READY_DB_TIMEOUT_MS"), 500)) * time.Millisecond,
		HealthRedisTimeout:   time.Duration(common.AtoiDefault(k.String("HEALTH_READY_REDIS_TIMEOUT_MS"), 300)) * time.Millisecond,
	}

	if cfg.CatalogDataSource == "" {
		cfg.CatalogDataSource = DataSourceStatic
		if cfg.DatabaseURL != "" {
			cfg.CatalogDataSource = DataSourcePostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.CatalogDataSource == DataSourcePostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required when CATALOG_DATA_SOURCE=postgres")
	}
	return nil
}

// UsePostgres reports whether the catalog should be read from PostgreSQL.
func (c *Config) UsePostgres() bool {
	return c.CatalogDataSource == DataSourcePostgres && c.DatabaseURL != ""
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
