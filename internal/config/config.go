// Package config provides configuration loading and validation for the API
// server and the place importer. It uses koanf to merge environment variables
// with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Storage. An empty DatabaseURL selects in-memory repositories.
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// Session loading
	PlacesLimit            int `koanf:"places_limit"`
	ReviewsLimit           int `koanf:"reviews_limit"`
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"` // 0 disables periodic refresh

	// Ranking calibration file (JSON). Optional.
	RankingConfigPath string `koanf:"ranking_config_path"`

	// HTTP edge
	RateLimitPerMinute  int      `koanf:"rate_limit_per_minute"`
	ReviewLimitPerMinute int     `koanf:"review_limit_per_minute"`
	CORSAllowedOrigins  []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"` // otlp-http or otlp-grpc
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
	TracingInsecure   bool    `koanf:"tracing_insecure"`

	// R2 (S3-compatible object storage) for importer sources
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2Endpoint        string `koanf:"r2_endpoint"`
}

// Configuration validation errors.
var (
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidInteger           = errors.New("value must be a valid integer")
	ErrInvalidFloat             = errors.New("value must be a valid number")
	ErrPortOutOfRange           = errors.New("PORT must be between 1 and 65535")
	ErrNegativeLimit            = errors.New("limits must not be negative")
	ErrInvalidRateLimit         = errors.New("rate limits must be positive")
	ErrInvalidTracingExporter   = errors.New("TRACING_EXPORTER must be otlp-http or otlp-grpc")
	ErrInvalidTracingSampleRate = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrMissingR2BucketName      = errors.New("R2_BUCKET_NAME is required")
	ErrMissingR2AccessKeyID     = errors.New("R2_ACCESS_KEY_ID is required")
	ErrMissingR2SecretAccessKey = errors.New("R2_SECRET_ACCESS_KEY is required")
	ErrMissingR2Endpoint        = errors.New("R2_ENDPOINT is required")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultPlacesLimit            = 2000
	DefaultReviewsLimit           = 5000
	DefaultRefreshIntervalSeconds = 60
	DefaultRateLimitPerMinute     = 120
	DefaultReviewLimitPerMinute   = 10
	DefaultTracingExporter        = "otlp-http"
	DefaultTracingSampleRate      = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	intField := func(envKeys []string, koanfKey string, def int) int {
		v, err := getEnvIntOrDefaultMulti(envKeys, k, koanfKey, def)
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
		return v
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"VIBEMAP_PORT", "PORT"}, k, "port", DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %w", ErrInvalidPort, portErr))
	}

	sampleRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k, "tracing_sample_rate", DefaultTracingSampleRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"VIBEMAP_ENV", "ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		PlacesLimit:            intField([]string{"PLACES_LIMIT"}, "places_limit", DefaultPlacesLimit),
		ReviewsLimit:           intField([]string{"REVIEWS_LIMIT"}, "reviews_limit", DefaultReviewsLimit),
		RefreshIntervalSeconds: intField([]string{"REFRESH_INTERVAL_SECONDS"}, "refresh_interval_seconds", DefaultRefreshIntervalSeconds),
		RankingConfigPath:      getEnvOrKoanf("RANKING_CONFIG_PATH", k, "ranking_config_path"),
		RateLimitPerMinute:     intField([]string{"RATE_LIMIT_PER_MINUTE"}, "rate_limit_per_minute", DefaultRateLimitPerMinute),
		ReviewLimitPerMinute:   intField([]string{"REVIEW_LIMIT_PER_MINUTE"}, "review_limit_per_minute", DefaultReviewLimitPerMinute),
		CORSAllowedOrigins:     getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		TracingEnabled:         getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporter:        getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		OTLPEndpoint:           getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSampleRate:      sampleRate,
		TracingInsecure:        getEnvBoolOrKoanf("TRACING_INSECURE", k, "tracing_insecure"),
		R2BucketName:           getEnvOrKoanf("R2_BUCKET_NAME", k, "r2_bucket_name"),
		R2AccessKeyID:          getEnvOrKoanf("R2_ACCESS_KEY_ID", k, "r2_access_key_id"),
		R2SecretAccessKey:      getEnvOrKoanf("R2_SECRET_ACCESS_KEY", k, "r2_secret_access_key"),
		R2Endpoint:             getEnvOrKoanf("R2_ENDPOINT", k, "r2_endpoint"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order,
// then the koanf key, then the default. A koanf key that is present wins
// over the default even when it is 0, so a file can disable refresh.
func getEnvIntOrDefaultMulti(envKeys []string, k *koanf.Koanf, koanfKey string, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return defaultVal, fmt.Errorf("%s: %w", key, ErrInvalidInteger)
			}
			return i, nil
		}
	}
	if k.Exists(koanfKey) {
		return k.Int(koanfKey), nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return defaultVal, fmt.Errorf("%s: %w", envKey, ErrInvalidFloat)
		}
		return f, nil
	}
	if k.Exists(koanfKey) {
		return k.Float64(koanfKey), nil
	}
	return defaultVal, nil
}

// getEnvBoolOrKoanf parses true/1/yes/on and false/0/no/off; anything else
// falls back to the koanf value.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return k.Bool(koanfKey)
}

// getEnvListOrKoanf reads a comma-separated env var, or a YAML list.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	var raw []string
	if val := os.Getenv(envKey); val != "" {
		raw = strings.Split(val, ",")
	} else {
		raw = k.Strings(koanfKey)
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that configuration values are usable.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrPortOutOfRange)
	}
	if c.PlacesLimit < 0 || c.ReviewsLimit < 0 || c.RefreshIntervalSeconds < 0 {
		errs = append(errs, ErrNegativeLimit)
	}
	if c.RateLimitPerMinute <= 0 || c.ReviewLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	if c.TracingExporter != "otlp-http" && c.TracingExporter != "otlp-grpc" {
		errs = append(errs, ErrInvalidTracingExporter)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidTracingSampleRate)
	}

	// R2 configuration is optional. Only validate fields if any R2 value is set.
	if c.R2BucketName != "" || c.R2AccessKeyID != "" || c.R2SecretAccessKey != "" || c.R2Endpoint != "" {
		if c.R2BucketName == "" {
			errs = append(errs, ErrMissingR2BucketName)
		}
		if c.R2AccessKeyID == "" {
			errs = append(errs, ErrMissingR2AccessKeyID)
		}
		if c.R2SecretAccessKey == "" {
			errs = append(errs, ErrMissingR2SecretAccessKey)
		}
		if c.R2Endpoint == "" {
			errs = append(errs, ErrMissingR2Endpoint)
		}
	}

	return errs
}

// R2Configured reports whether object storage credentials are present.
func (c *Config) R2Configured() bool {
	return c.R2BucketName != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2Endpoint != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     strconv.Itoa(c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"places_limit":             strconv.Itoa(c.PlacesLimit),
		"reviews_limit":            strconv.Itoa(c.ReviewsLimit),
		"refresh_interval_seconds": strconv.Itoa(c.RefreshIntervalSeconds),
		"ranking_config_path":      c.RankingConfigPath,
		"rate_limit_per_minute":    strconv.Itoa(c.RateLimitPerMinute),
		"review_limit_per_minute":  strconv.Itoa(c.ReviewLimitPerMinute),
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":          strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":         c.TracingExporter,
		"otlp_endpoint":            c.OTLPEndpoint,
		"tracing_sample_rate":      strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
		"r2_bucket_name":           c.R2BucketName,
		"r2_access_key_id":         maskSecret(c.R2AccessKeyID),
		"r2_secret_access_key":     maskSecret(c.R2SecretAccessKey),
		"r2_endpoint":              c.R2Endpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL
// (postgres://, postgresql://, redis://, rediss://).
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
