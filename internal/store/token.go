package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
)

// TokenSearch holds the filter for a token search. ChainID is required;
// at least one of Symbol, Name or Address must be set (enforced upstream).
type TokenSearch struct {
	ChainID int64
	Symbol  string
	Name    string
	Address string
	Limit   int
}

// TokenStore defines the interface for ERC-20 token persistence.
type TokenStore interface {
	// Create saves a new token. If a token with the same (chain, address)
	// already exists the existing row is returned unchanged, making token
	// discovery idempotent.
	Create(ctx context.Context, token *domain.Token) (*domain.Token, error)

	// GetByID retrieves a token by its unique ID.
	// Returns ErrTokenNotFound if the token does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Token, error)

	// GetByAddress retrieves a token by (chain, address).
	// Returns ErrTokenNotFound if the token does not exist.
	GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Token, error)

	// Search returns tokens matching the filter, capped at filter.Limit.
	Search(ctx context.Context, filter TokenSearch) ([]domain.Token, error)
}

// PoolStore defines the interface for pool persistence.
type PoolStore interface {
	// Create saves a new pool. If a pool with the same (chain, address)
	// already exists the existing row is returned unchanged.
	Create(ctx context.Context, pool *domain.Pool) (*domain.Pool, error)

	// GetByID retrieves a pool with both tokens populated.
	// Returns ErrPoolNotFound if the pool does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error)

	// GetByAddress retrieves a pool with both tokens populated.
	// Returns ErrPoolNotFound if the pool does not exist.
	GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Pool, error)
}
