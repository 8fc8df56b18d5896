package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PoolService discovers and reads concentrated-liquidity pools.
type PoolService struct {
	pools   store.PoolStore
	tokens  *TokenService
	chain   ChainReader
	metrics PoolMetricsSource
	logger  *slog.Logger
}

// NewPoolService creates a PoolService. metrics may be nil, in which case
// enrichment is simply never available.
func NewPoolService(pools store.PoolStore, tokens *TokenService, chain ChainReader, metrics PoolMetricsSource, log *slog.Logger) *PoolService {
	if pools == nil {
		panic("pools store cannot be nil")
	}
	if tokens == nil {
		panic("token service cannot be nil")
	}
	if chain == nil {
		panic("chain reader cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PoolService{
		pools:   pools,
		tokens:  tokens,
		chain:   chain,
		metrics: metrics,
		logger:  log.With(slog.String("component", "pool_service")),
	}
}

// GetPool returns the pool at (chainID, address), discovering it from chain
// on first sight. When enrichMetrics is set, subgraph USD metrics are
// attached on a best-effort basis: a metrics failure is logged and the pool
// is returned without them.
//
// Returns ErrChainNotSupported when the pool is unknown and the chain has
// no RPC endpoint, and ErrPoolNotFound when the address does not answer the
// pool immutable reads.
func (s *PoolService) GetPool(ctx context.Context, chainID int64, address string, enrichMetrics bool) (*domain.Pool, *domain.PoolMetrics, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.IsValidAddress(address) {
		return nil, nil, domain.NewValidationError("address", "must be a 0x-prefixed 40-hex-character string", domain.ErrInvalidAddress)
	}

	pool, err := s.pools.GetByAddress(ctx, chainID, address)
	if errors.Is(err, store.ErrPoolNotFound) {
		pool, err = s.discover(ctx, chainID, address)
	}
	if err != nil {
		return nil, nil, err
	}

	var metrics *domain.PoolMetrics
	if enrichMetrics && s.metrics != nil {
		metrics, err = s.metrics.PoolMetrics(ctx, chainID, pool.Address)
		if err != nil {
			log.Warn("pool metrics unavailable",
				slog.Int64("chain_id", chainID),
				slog.String("address", pool.Address),
				slog.String("error", err.Error()))
			metrics = nil
		}
	}

	return pool, metrics, nil
}

// discover reads the pool's immutables from chain, discovers both of its
// tokens, and persists the pool.
func (s *PoolService) discover(ctx context.Context, chainID int64, address string) (*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !s.chain.Supports(chainID) {
		return nil, fmt.Errorf("%w: chain %d", ErrChainNotSupported, chainID)
	}

	immutables, err := s.chain.PoolImmutables(ctx, chainID, address)
	if err != nil {
		log.Debug("address failed pool immutable reads",
			slog.Int64("chain_id", chainID),
			slog.String("address", address),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrPoolNotFound, err)
	}

	token0, err := s.tokens.DiscoverERC20(ctx, chainID, immutables.Token0)
	if err != nil {
		return nil, fmt.Errorf("failed to discover token0: %w", err)
	}
	token1, err := s.tokens.DiscoverERC20(ctx, chainID, immutables.Token1)
	if err != nil {
		return nil, fmt.Errorf("failed to discover token1: %w", err)
	}

	pool, err := domain.NewPool(chainID, address, domain.ProtocolUniswapV3, token0, token1, immutables.FeeTier, immutables.TickSpacing)
	if err != nil {
		return nil, err
	}

	created, err := s.pools.Create(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to save pool: %w", err)
	}
	return created, nil
}
