package service

import "errors"

// Structured service error kinds. Handlers classify these with errors.Is to
// pick an API error code; the service layer never communicates failure
// classes through message text.
var (
	// ErrChainNotSupported is returned when no RPC endpoint is configured
	// for the requested chain.
	ErrChainNotSupported = errors.New("chain is not supported")

	// ErrNotERC20 is returned when the contract at the given address does
	// not implement the ERC-20 metadata interface.
	ErrNotERC20 = errors.New("contract does not implement ERC-20")

	// ErrTokenNotFound is returned when a token cannot be located on chain
	// or in the store.
	ErrTokenNotFound = errors.New("token not found")

	// ErrPoolNotFound is returned when a pool cannot be located.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPositionNotFound is returned when a position does not exist or is
	// owned by a different user.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPositionExists is returned when creating a position that the user
	// already tracks.
	ErrPositionExists = errors.New("position already exists")

	// ErrAPIKeyNotFound is returned when an API key does not exist or is
	// owned by a different user.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrWalletAlreadyRegistered is returned when linking a wallet that is
	// already bound to an account.
	ErrWalletAlreadyRegistered = errors.New("wallet already registered")

	// ErrEventOutOfOrder is returned when a ledger event does not sort
	// strictly after the current ledger tail.
	ErrEventOutOfOrder = errors.New("ledger event out of blockchain order")

	// ErrEventAlreadyRecorded is returned when appending an event whose
	// (transaction hash, log index) pair is already in the ledger.
	ErrEventAlreadyRecorded = errors.New("ledger event already recorded")

	// ErrFirstEventNotIncrease is returned when creating a position from an
	// event that is not an INCREASE_LIQUIDITY.
	ErrFirstEventNotIncrease = errors.New("position must open with an increase liquidity event")

	// ErrEmptyLedger is returned when derived history is requested for a
	// position with no recorded events.
	ErrEmptyLedger = errors.New("position has no ledger events")

	// ErrPriceUnavailable is returned when a derived USD computation cannot
	// obtain a price for one of the position's tokens.
	ErrPriceUnavailable = errors.New("token price unavailable")
)
