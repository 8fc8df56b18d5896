package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
)

// PositionFilter narrows and orders a position listing. Every query is
// scoped to UserID: a listing never crosses user boundaries.
type PositionFilter struct {
	UserID    uuid.UUID
	Protocols []domain.Protocol // empty means all protocols
	ChainID   int64             // zero means all chains
	Status    domain.PositionStatus
	SortBy    string // createdAt, openedAt, liquidity
	SortDesc  bool
	Limit     int
	Offset    int
}

// PositionStore defines the interface for position and ledger persistence.
type PositionStore interface {
	// Create saves a new position row.
	Create(ctx context.Context, position *domain.Position) error

	// GetByNFT retrieves a user's position by its protocol-level identity.
	// Returns ErrPositionNotFound if it does not exist or belongs to a
	// different user.
	GetByNFT(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*domain.Position, error)

	// List returns the filtered page of positions and the total number of
	// rows matching the filter regardless of pagination.
	List(ctx context.Context, filter PositionFilter) ([]domain.Position, int, error)

	// Update persists liquidity/activity changes to an existing position.
	Update(ctx context.Context, position *domain.Position) error

	// Delete removes a user's position and its ledger.
	// Returns ErrPositionNotFound if it does not exist or is not owned.
	Delete(ctx context.Context, userID, positionID uuid.UUID) error

	// AppendEvent saves a ledger event for a position.
	// Returns ErrLedgerEventExists if the (transaction hash, log index)
	// pair was already recorded.
	AppendEvent(ctx context.Context, event *domain.LedgerEvent) error

	// ListEvents returns the position's ledger in blockchain order.
	ListEvents(ctx context.Context, positionID uuid.UUID) ([]domain.LedgerEvent, error)

	// LastEvent returns the ledger tail, or ErrNotFound for an empty ledger.
	LastEvent(ctx context.Context, positionID uuid.UUID) (*domain.LedgerEvent, error)

	// WithTx returns a PositionStore bound to the given transaction so that
	// position updates and ledger appends commit atomically.
	WithTx(tx *sql.Tx) PositionStore
}
