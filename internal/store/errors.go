package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is the generic version of the entity-specific not found
	// errors (e.g., ErrTokenNotFound, ErrPositionNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity (e.g., a wallet address already bound to a user).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrWalletNotFound indicates that the requested wallet does not exist.
	ErrWalletNotFound = fmt.Errorf("%w: wallet", ErrNotFound)

	// ErrAPIKeyNotFound indicates that the requested API key does not exist.
	ErrAPIKeyNotFound = fmt.Errorf("%w: api key", ErrNotFound)

	// ErrTokenNotFound indicates that the requested token does not exist.
	ErrTokenNotFound = fmt.Errorf("%w: token", ErrNotFound)

	// ErrPoolNotFound indicates that the requested pool does not exist.
	ErrPoolNotFound = fmt.Errorf("%w: pool", ErrNotFound)

	// ErrPositionNotFound indicates that the requested position does not exist.
	ErrPositionNotFound = fmt.Errorf("%w: position", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrWalletExists indicates that the wallet address is already registered
	// on that chain.
	ErrWalletExists = fmt.Errorf("%w: wallet address", ErrDuplicate)

	// ErrLedgerEventExists indicates that the (transaction hash, log index)
	// pair was already recorded for the position.
	ErrLedgerEventExists = fmt.Errorf("%w: ledger event", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
