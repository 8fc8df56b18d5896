// Package main implements the entry point for the position API server,
// which tracks users' concentrated-liquidity positions across chains and
// exposes the REST surface for token/pool discovery and the position
// lifecycle.
package main

import (
	"log"
	"log/slog"

	"github.com/positionhq/position-api/internal/config"
	"github.com/positionhq/position-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	app, err := newApplication(cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
