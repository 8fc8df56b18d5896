package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Position is a concentrated-liquidity position tracked for a user. The
// current Liquidity is derived from the position's ledger; a position whose
// liquidity has run to zero is closed (IsActive false).
type Position struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	PoolID    uuid.UUID  `json:"pool_id"`
	Pool      *Pool      `json:"pool,omitempty"`
	Protocol  Protocol   `json:"protocol"`
	ChainID   int64      `json:"chain_id"`
	NFTID     string     `json:"nft_id"`
	TickLower int32      `json:"tick_lower"`
	TickUpper int32      `json:"tick_upper"`
	Liquidity *big.Int   `json:"liquidity"`
	IsActive  bool       `json:"is_active"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewPosition creates a Position opened by its first increase event.
func NewPosition(userID, poolID uuid.UUID, protocol Protocol, chainID int64, nftID string, tickLower, tickUpper int32, openedAt time.Time) (*Position, error) {
	if userID == uuid.Nil {
		return nil, NewValidationError("user_id", "cannot be empty", ErrInvalidID)
	}
	if poolID == uuid.Nil {
		return nil, NewValidationError("pool_id", "cannot be empty", ErrInvalidID)
	}
	if !protocol.Valid() {
		return nil, NewValidationError("protocol", "is not supported", ErrValidation)
	}
	if chainID <= 0 {
		return nil, NewValidationError("chain_id", "must be positive", ErrInvalidChainID)
	}
	if nftID == "" {
		return nil, NewValidationError("nft_id", "cannot be empty", ErrValidation)
	}
	if tickLower >= tickUpper {
		return nil, NewValidationError("tick_lower", "must be below tick_upper", ErrValidation)
	}

	now := time.Now().UTC()
	return &Position{
		ID:        uuid.New(),
		UserID:    userID,
		PoolID:    poolID,
		Protocol:  protocol,
		ChainID:   chainID,
		NFTID:     nftID,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: new(big.Int),
		IsActive:  true,
		OpenedAt:  openedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PositionStatus filters position listings.
type PositionStatus string

// Position listing statuses.
const (
	PositionStatusActive PositionStatus = "active"
	PositionStatusClosed PositionStatus = "closed"
	PositionStatusAll    PositionStatus = "all"
)

// Valid reports whether s is a known listing status.
func (s PositionStatus) Valid() bool {
	switch s {
	case PositionStatusActive, PositionStatusClosed, PositionStatusAll:
		return true
	}
	return false
}
