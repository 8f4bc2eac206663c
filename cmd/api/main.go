// Command api serves the busgraph REST and GraphQL API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/busgraph/busgraph/internal/api"
	"github.com/busgraph/busgraph/internal/api/middleware"
	"github.com/busgraph/busgraph/internal/app"
	"github.com/busgraph/busgraph/internal/config"
	"github.com/busgraph/busgraph/internal/graph"
	"github.com/busgraph/busgraph/internal/telemetry"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName     = "busgraph-api"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := app.NewLogger(cfg, serviceName, Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("busgraph API exited")
		stop()
		os.Exit(1) //nolint:gocritic // deferred stop already called
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Str("env", cfg.Environment).Msg("starting busgraph API")

	otelProvider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to flush telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("exporting telemetry")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		return fmt.Errorf("provider metrics: %w", err)
	}

	stack, err := app.NewStack(cfg, log, providerMetrics)
	if err != nil {
		return fmt.Errorf("transit stack: %w", err)
	}
	log.Info().
		Str("base_url", cfg.TFLBaseURL).
		Str("stop_filter", cfg.StopFilter).
		Bool("app_key", cfg.TFLAppKey != "").
		Msg("transit service ready")

	schema, err := graph.NewSchema(stack.Service)
	if err != nil {
		return fmt.Errorf("graphql schema: %w", err)
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:     Version,
			BuildTime:   BuildTime,
			Logger:      log,
			ServiceName: serviceName,
			Metrics:     httpMetrics,
			Stops:       stack.Service,
			Schema:      schema,
			Registry:    stack.Registry,
			CORSOrigins: cfg.CORSAllowedOrigins,
			RequireTLS:  cfg.RequireTLS,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a slow upstream plus the fan-out must fit
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
