package service

import (
	"context"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/coingecko"
	"github.com/positionhq/position-api/internal/platform/evm"
	"github.com/shopspring/decimal"
)

// ChainReader reads contract state from a chain's RPC endpoint. Satisfied
// by the evm client.
type ChainReader interface {
	// Supports reports whether the chain has a configured RPC endpoint.
	Supports(chainID int64) bool

	// ERC20Metadata reads the token contract's name, symbol and decimals.
	ERC20Metadata(ctx context.Context, chainID int64, address string) (*evm.ERC20Metadata, error)

	// PoolImmutables reads a Uniswap V3 pool's fixed parameters.
	PoolImmutables(ctx context.Context, chainID int64, address string) (*evm.PoolImmutables, error)
}

// TokenEnricher provides off-chain token metadata and USD prices. Satisfied
// by the coingecko client. Enrichment is best-effort; price lookups are not.
type TokenEnricher interface {
	TokenMetadata(ctx context.Context, chainID int64, address string) (*coingecko.TokenMetadata, error)
	SimplePriceUSD(ctx context.Context, coingeckoID string) (decimal.Decimal, error)
}

// PoolMetricsSource provides best-effort USD metrics for a pool. Satisfied
// by the subgraph client.
type PoolMetricsSource interface {
	PoolMetrics(ctx context.Context, chainID int64, poolAddress string) (*domain.PoolMetrics, error)
}
