package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ts-platform/portal/internal/config"
	"github.com/ts-platform/portal/internal/logger"
	"github.com/ts-platform/portal/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("version", version).
		Float64("error_rate", cfg.Server.ErrorRate).
		Msg("Starting ts-platform mock API...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Serve until a shutdown signal arrives
	if err := srv.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
