// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidAddress is returned when an Ethereum address is not a
	// 0x-prefixed 40-hex-character string.
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrInvalidTxHash is returned when a transaction hash is not a
	// 0x-prefixed 64-hex-character string.
	ErrInvalidTxHash = errors.New("invalid transaction hash format")

	// ErrInvalidChainID is returned when a chain ID is zero or negative.
	ErrInvalidChainID = errors.New("invalid chain ID")

	// ErrInvalidEventType is returned when a ledger event type is not one of
	// the known event types.
	ErrInvalidEventType = errors.New("invalid ledger event type")

	// ErrMissingLiquidity is returned when an increase/decrease event does not
	// carry a liquidity delta.
	ErrMissingLiquidity = errors.New("liquidity is required for this event type")

	// ErrUnexpectedRecipient is returned when an increase/decrease event
	// carries a recipient, which only collect events may have.
	ErrUnexpectedRecipient = errors.New("recipient is not allowed for this event type")

	// ErrMissingRecipient is returned when a collect event does not carry a
	// recipient address.
	ErrMissingRecipient = errors.New("recipient is required for collect events")

	// ErrNegativeAmount is returned when an on-chain amount is negative.
	// All ledger quantities are unsigned magnitudes.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError wraps a sentinel domain error with the field it applies to.
// The API layer uses Field/Message to build field-level violation details.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Unwrap returns the wrapped sentinel error to support errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
