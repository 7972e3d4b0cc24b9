// Package main implements the entry point for the agent-services server,
// which runs the SAP automation agents, migration pipelines, and connector
// tests on a shared prioritized task runner and exposes them over HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/sapbridge/agent-services/internal/config"
	"github.com/sapbridge/agent-services/internal/platform/logger"
)

// main is the entry point for the agent-services server. It initializes
// configuration and logging, wires the application dependencies, and runs
// the HTTP server until shutdown.
func main() {
	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app := newApplication(cfg, appLogger)
	if err := app.Run(context.Background()); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"workers", cfg.Runner.WorkerCount)

	return cfg, appLogger, nil
}
