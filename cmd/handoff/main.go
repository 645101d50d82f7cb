// Package main runs the hand-off core: a periodic producer pushing task batches and a
// consumer that sleeps on the signal gate until woken, with an optional admin
// HTTP server for stats, manual production and metrics.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/phrazzld/handoff/internal/config"
)

func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = app.Run(ctx)
	stop()

	if err != nil {
		appLogger.Error("application stopped with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, nil, err
	}

	appLogger, err := setupAppLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	appLogger.Info("configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"producer_period", cfg.Producer.Period,
		"producer_batch", cfg.Producer.Batch,
		"admin_enabled", cfg.Admin.Enabled)
	if cfg.Admin.Enabled {
		appLogger.Debug("admin configuration", "port", cfg.Admin.Port)
	}

	return cfg, appLogger, nil
}

// loadAppConfig wraps config.Load with the binary's error context.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
