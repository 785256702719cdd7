package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Rate limit stores.
const (
	RateLimitOff    = "off"
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// FunctionConfig is the subset of settings a function binary reads.
type FunctionConfig struct {
	LogFormat             string
	LogLevel              string
	FunctionInputMaxBytes int64
}

// Config holds the preview server configuration loaded from the environment.
type Config struct {
	FunctionConfig

	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string

	TracingEnabled       bool
	TracingExporter      string
	OTLPEndpoint         string
	TracingSamplingRatio float64

	SecurityHeadersEnabled bool

	RateLimitStore  string
	RateLimitWindow time.Duration
	RateLimitMax    int
	RedisURL        string

	ShutdownTimeout time.Duration
}

func loadEnv() (*koanf.Koanf, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return k, nil
}

func functionConfig(k *koanf.Koanf) (FunctionConfig, error) {
	cfg := FunctionConfig{
		LogFormat:             valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:              valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		FunctionInputMaxBytes: parseInt64(k.String("FUNCTION_INPUT_MAX_BYTES"), 64<<10),
	}
	if cfg.FunctionInputMaxBytes <= 0 {
		return cfg, errors.New("FUNCTION_INPUT_MAX_BYTES must be positive")
	}
	return cfg, nil
}

// LoadFunction reads the settings used by the stdin/stdout function binaries.
// Server settings are ignored.
func LoadFunction() (*FunctionConfig, error) {
	k, err := loadEnv()
	if err != nil {
		return nil, err
	}
	cfg, err := functionConfig(k)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the preview server configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	k, err := loadEnv()
	if err != nil {
		return nil, err
	}
	fn, err := functionConfig(k)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FunctionConfig:     fn,
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "volume_discount"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),

		TracingEnabled:       parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:      valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:         strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),

		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),

		RateLimitStore:  strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STORE"), RateLimitMemory)),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    int(parseInt64(k.String("RATE_LIMIT_MAX"), 120)),
		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),

		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
	}

	switch cfg.RateLimitStore {
	case RateLimitOff:
		return cfg, nil
	case RateLimitMemory:
	case RateLimitRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_STORE %q", cfg.RateLimitStore)
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.RateLimitMax <= 0 {
		return nil, errors.New("RATE_LIMIT_MAX must be positive")
	}

	return cfg, nil
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
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
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

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt64(value string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	return withEnv(env, Load)
}

// LoadFunctionForTests is LoadForTests for the function binary settings.
func LoadFunctionForTests(env map[string]string) (*FunctionConfig, error) {
	return withEnv(env, LoadFunction)
}

func withEnv[T any](env map[string]string, load func() (T, error)) (T, error) {
	var zero T
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return zero, err
		}
	}
	cfg, err := load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return zero, err
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
