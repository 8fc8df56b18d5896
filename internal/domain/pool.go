package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Protocol identifies the AMM protocol a pool or position belongs to.
type Protocol string

// Supported protocols.
const (
	ProtocolUniswapV3 Protocol = "uniswapv3"
	ProtocolOrca      Protocol = "orca"
)

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolUniswapV3, ProtocolOrca:
		return true
	}
	return false
}

// Pool is a concentrated-liquidity pool on a supported chain.
// Token0 and Token1 are populated on reads; only their IDs are persisted
// on the pool row itself.
type Pool struct {
	ID          uuid.UUID `json:"id"`
	ChainID     int64     `json:"chain_id"`
	Address     string    `json:"address"`
	Protocol    Protocol  `json:"protocol"`
	Token0      *Token    `json:"token0"`
	Token1      *Token    `json:"token1"`
	FeeTier     int       `json:"fee_tier"`
	TickSpacing int       `json:"tick_spacing"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPool creates a Pool after validating its identity fields.
func NewPool(chainID int64, address string, protocol Protocol, token0, token1 *Token, feeTier, tickSpacing int) (*Pool, error) {
	if chainID <= 0 {
		return nil, NewValidationError("chain_id", "must be positive", ErrInvalidChainID)
	}
	if !IsValidAddress(address) {
		return nil, NewValidationError("address", "must be a 0x-prefixed 40-hex-character string", ErrInvalidAddress)
	}
	if !protocol.Valid() {
		return nil, NewValidationError("protocol", "is not supported", ErrValidation)
	}
	if token0 == nil || token1 == nil {
		return nil, NewValidationError("tokens", "pool requires both tokens", ErrValidation)
	}

	now := time.Now().UTC()
	return &Pool{
		ID:          uuid.New(),
		ChainID:     chainID,
		Address:     NormalizeAddress(address),
		Protocol:    protocol,
		Token0:      token0,
		Token1:      token1,
		FeeTier:     feeTier,
		TickSpacing: tickSpacing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// PoolMetrics holds best-effort subgraph metrics for a pool. All values are
// USD-denominated. The metrics are enrichment only: lookups succeed without
// them when the subgraph is unavailable.
type PoolMetrics struct {
	TVLUSD       decimal.Decimal `json:"tvl_usd"`
	VolumeUSD24h decimal.Decimal `json:"volume_usd_24h"`
	FeesUSD24h   decimal.Decimal `json:"fees_usd_24h"`
}
