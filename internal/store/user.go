package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// WalletStore defines the interface for wallet address persistence.
type WalletStore interface {
	// Create binds a wallet address to a user.
	// Returns ErrWalletExists if the (address, chain) pair is already bound.
	Create(ctx context.Context, wallet *domain.WalletAddress) error

	// ListByUser returns every wallet bound to the user, primary first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletAddress, error)

	// GetByAddress retrieves a wallet binding by (address, chain).
	// Returns ErrWalletNotFound if no binding exists.
	GetByAddress(ctx context.Context, address string, chainID int64) (*domain.WalletAddress, error)
}

// APIKeyStore defines the interface for API key persistence.
type APIKeyStore interface {
	// Create saves a new API key record.
	Create(ctx context.Context, key *domain.APIKey) error

	// GetByPrefix retrieves a non-revoked key by its public prefix.
	// Returns ErrAPIKeyNotFound if no such key exists.
	GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error)

	// ListByUser returns every non-revoked key owned by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error)

	// Revoke marks the key as revoked if it is owned by the user.
	// Returns ErrAPIKeyNotFound if the key does not exist or is not owned.
	Revoke(ctx context.Context, userID, keyID uuid.UUID) error

	// TouchLastUsed records that the key was just used. Failures here are a
	// weak-consistency concern for the caller; the timestamp may lag.
	TouchLastUsed(ctx context.Context, keyID uuid.UUID) error
}
