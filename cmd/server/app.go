package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/positionhq/position-api/internal/api/middleware"
	"github.com/positionhq/position-api/internal/config"
	"github.com/positionhq/position-api/internal/platform/coingecko"
	"github.com/positionhq/position-api/internal/platform/evm"
	"github.com/positionhq/position-api/internal/platform/postgres"
	"github.com/positionhq/position-api/internal/platform/subgraph"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/service/auth"
	"github.com/positionhq/position-api/internal/task"
)

// application holds the process-wide singletons: the db pool, the service
// handles, the enrichment clients, and the detached runner. Everything is
// constructed once here and injected; there are no hidden globals.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	runner *task.Runner

	tokenService    *service.TokenService
	poolService     *service.PoolService
	positionService *service.PositionService
	apiKeyService   *service.APIKeyService
	walletService   *service.WalletService

	authenticator *middleware.Authenticator
}

// newApplication wires the full dependency graph and applies pending
// database migrations.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, err
	}

	// Stores.
	userStore := postgres.NewPostgresUserStore(db, logger)
	walletStore := postgres.NewPostgresWalletStore(db, logger)
	apiKeyStore := postgres.NewPostgresAPIKeyStore(db, logger)
	tokenStore := postgres.NewPostgresTokenStore(db, logger)
	poolStore := postgres.NewPostgresPoolStore(db, logger)
	positionStore := postgres.NewPostgresPositionStore(db, logger)

	// External clients.
	chainReader := evm.NewClient(cfg.Chains.RPCURLs, logger)
	metricsClient := subgraph.NewClient(cfg.Chains.SubgraphURLs, logger)
	enricher := coingecko.NewClient(cfg.Enrichment.CoingeckoBaseURL, cfg.Enrichment.CoingeckoAPIKey, logger)

	// Auth plumbing.
	sessionService, err := auth.NewSessionService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}
	nonceStore := auth.NewNonceStore(time.Duration(cfg.Auth.NonceTTLSeconds) * time.Second)
	siweVerifier := auth.NewSIWEVerifier(cfg.Auth.SIWEDomain, nonceStore)

	// Detached runner for the fire-and-forget API-key touches.
	runner := task.NewRunner(task.RunnerConfig{}, logger)

	// Services.
	tokenService := service.NewTokenService(tokenStore, chainReader, enricher, logger)
	poolService := service.NewPoolService(poolStore, tokenService, chainReader, metricsClient, logger)
	positionService := service.NewPositionService(db, positionStore, poolStore, poolService, enricher, logger)
	apiKeyService := service.NewAPIKeyService(apiKeyStore, runner, logger)
	walletService := service.NewWalletService(userStore, walletStore, nonceStore, siweVerifier, sessionService, logger)

	authenticator := middleware.NewAuthenticator(apiKeyService, sessionService, walletService, logger)

	return &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		runner:          runner,
		tokenService:    tokenService,
		poolService:     poolService,
		positionService: positionService,
		apiKeyService:   apiKeyService,
		walletService:   walletService,
		authenticator:   authenticator,
	}, nil
}

// cleanup releases the application's resources in shutdown order: the
// runner drains its queue before the db pool closes under it.
func (app *application) cleanup() {
	app.runner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}
