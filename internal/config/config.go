// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"required"`
	LogLevel    string `validate:"oneof=trace debug info warn error"`
	LogFormat   string `validate:"oneof=json console"`

	TFLAppKey       string
	TFLBaseURL      string `validate:"required,url"`
	TFLStopTypes    string `validate:"required"`
	TFLSearchRadius int    `validate:"gte=0,lte=5000"`

	UpstreamTimeout    time.Duration `validate:"gt=0"`
	UpstreamMaxRetries uint64        `validate:"lte=5"`
	StopFilter         string        `validate:"oneof=none stop-letter"`
	FanOutLimit        int           `validate:"gte=1,lte=64"`

	CORSAllowedOrigins []string `validate:"dive,required"`

	OTelEnabled  bool
	OTLPEndpoint string `validate:"required_if=OTelEnabled true"`

	RequireTLS bool
}

// Load reads configuration from the environment, after applying a .env file when one exists.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment.
func FromEnv() (*Config, error) {
	radius, err := getEnvInt("TFL_SEARCH_RADIUS", 200)
	if err != nil {
		return nil, err
	}

	timeout, err := getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	retries, err := getEnvInt("UPSTREAM_MAX_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("invalid UPSTREAM_MAX_RETRIES: %d", retries)
	}

	fanOut, err := getEnvInt("FANOUT_LIMIT", 8)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		LogLevel:    strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),

		TFLAppKey:       os.Getenv("TFL_APP_KEY"),
		TFLBaseURL:      getEnvOrDefault("TFL_BASE_URL", "https://api.tfl.gov.uk"),
		TFLStopTypes:    getEnvOrDefault("TFL_STOP_TYPES", "NaptanPublicBusCoachTram"),
		TFLSearchRadius: radius,

		UpstreamTimeout:    timeout,
		UpstreamMaxRetries: uint64(retries),
		StopFilter:         getEnvOrDefault("STOP_FILTER", "none"),
		FanOutLimit:        fanOut,

		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "https://studio.apollographql.com")),

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	// plain HTTP is refused in production unless REQUIRE_TLS says otherwise
	cfg.RequireTLS = getEnvOrDefault("REQUIRE_TLS", strconv.FormatBool(cfg.IsProduction())) == "true"

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
