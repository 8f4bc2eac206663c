// Package app assembles the transit stack shared by the API server and the CLI.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/busgraph/busgraph/internal/config"
	"github.com/busgraph/busgraph/internal/provider/resilience"
	"github.com/busgraph/busgraph/internal/telemetry"
	"github.com/busgraph/busgraph/internal/transit"
	"github.com/busgraph/busgraph/internal/transit/tfl"
)

// NewLogger builds the root logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config, serviceName, version string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogFormat == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stdout)
	}

	return log.Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", version).
		Logger()
}

// Stack is the wired transit service and the registry tracking its upstream.
type Stack struct {
	Service  *transit.Service
	Registry *resilience.Registry
}

// NewStack wires the TfL client behind a circuit breaker into a transit service.
// metrics may be nil.
func NewStack(cfg *config.Config, log zerolog.Logger, metrics *telemetry.ProviderMetrics) (*Stack, error) {
	filter, err := transit.ParseStopFilter(cfg.StopFilter)
	if err != nil {
		return nil, fmt.Errorf("stop filter: %w", err)
	}

	registry := resilience.NewRegistry()

	cbConfig := resilience.DefaultCircuitBreakerConfig(tfl.ProviderName)
	cbConfig.OnStateChange = resilience.LogStateChanges(log)

	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:           tfl.ProviderName,
		Timeout:        cfg.UpstreamTimeout,
		MaxRetries:     cfg.UpstreamMaxRetries,
		CircuitBreaker: &cbConfig,
		Registry:       registry,
		Logger:         log,
	})

	provider := tfl.NewClient(tfl.ClientConfig{
		AppKey:     cfg.TFLAppKey,
		BaseURL:    cfg.TFLBaseURL,
		StopTypes:  cfg.TFLStopTypes,
		Radius:     cfg.TFLSearchRadius,
		HTTPClient: httpClient,
		Logger:     log.With().Str("provider", tfl.ProviderName).Logger(),
	})

	svc := transit.NewService(transit.ServiceConfig{
		Provider:    provider,
		Logger:      log,
		Filter:      filter,
		FanOutLimit: cfg.FanOutLimit,
		Metrics:     metrics,
	})

	return &Stack{Service: svc, Registry: registry}, nil
}
