// Package main provides busctl, a command line client for bus stop and arrival lookups.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/busgraph/busgraph/internal/app"
	"github.com/busgraph/busgraph/internal/busctl"
	"github.com/busgraph/busgraph/internal/config"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	errLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	newService := func() (busctl.StopService, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// Results go to stdout; logs stay on stderr and quiet by default.
		cfg.LogFormat = "console"
		if os.Getenv("LOG_LEVEL") == "" {
			cfg.LogLevel = "warn"
		}
		stack, err := app.NewStack(cfg, app.NewLogger(cfg, "busctl", Version), nil)
		if err != nil {
			return nil, err
		}
		return stack.Service, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := busctl.NewApp(os.Stdout, newService)
	cliApp.Version = Version
	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		errLog.Error().Err(err).Msg("busctl failed")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
