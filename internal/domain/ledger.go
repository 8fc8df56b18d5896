package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of on-chain action recorded in a
// position's ledger.
type EventType string

// Ledger event types.
const (
	EventIncreaseLiquidity EventType = "INCREASE_LIQUIDITY"
	EventDecreaseLiquidity EventType = "DECREASE_LIQUIDITY"
	EventCollect           EventType = "COLLECT"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventIncreaseLiquidity, EventDecreaseLiquidity, EventCollect:
		return true
	}
	return false
}

// LedgerEvent is a recorded on-chain action affecting a position. Events
// are totally ordered by (BlockNumber, TransactionIndex, LogIndex) and the
// ledger only grows at the tail: each appended event must sort strictly
// after every existing entry.
//
// Liquidity is set for increase/decrease events and nil for collects.
// Recipient is set for collect events and empty otherwise.
type LedgerEvent struct {
	ID               uuid.UUID `json:"id"`
	PositionID       uuid.UUID `json:"position_id"`
	Type             EventType `json:"event_type"`
	BlockNumber      uint64    `json:"block_number"`
	TransactionIndex uint32    `json:"transaction_index"`
	LogIndex         uint32    `json:"log_index"`
	TransactionHash  string    `json:"transaction_hash"`
	EventAt          time.Time `json:"event_at"`
	Liquidity        *big.Int  `json:"liquidity,omitempty"`
	Amount0          *big.Int  `json:"amount0"`
	Amount1          *big.Int  `json:"amount1"`
	Recipient        string    `json:"recipient,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the event's structural and conditional-field invariants.
func (e *LedgerEvent) Validate() error {
	if !e.Type.Valid() {
		return NewValidationError("event_type", "must be INCREASE_LIQUIDITY, DECREASE_LIQUIDITY or COLLECT", ErrInvalidEventType)
	}
	if !IsValidTxHash(e.TransactionHash) {
		return NewValidationError("transaction_hash", "must be a 0x-prefixed 64-hex-character string", ErrInvalidTxHash)
	}
	if e.EventAt.IsZero() {
		return NewValidationError("timestamp", "is required", ErrValidation)
	}
	if e.Amount0 == nil || e.Amount1 == nil {
		return NewValidationError("amounts", "amount0 and amount1 are required", ErrValidation)
	}
	if e.Amount0.Sign() < 0 || e.Amount1.Sign() < 0 {
		return NewValidationError("amounts", "cannot be negative", ErrNegativeAmount)
	}

	switch e.Type {
	case EventIncreaseLiquidity, EventDecreaseLiquidity:
		if e.Liquidity == nil {
			return NewValidationError("liquidity", "is required for liquidity events", ErrMissingLiquidity)
		}
		if e.Liquidity.Sign() < 0 {
			return NewValidationError("liquidity", "cannot be negative", ErrNegativeAmount)
		}
		if e.Recipient != "" {
			return NewValidationError("recipient", "is only allowed for collect events", ErrUnexpectedRecipient)
		}
	case EventCollect:
		if e.Recipient == "" {
			return NewValidationError("recipient", "is required for collect events", ErrMissingRecipient)
		}
		if !IsValidAddress(e.Recipient) {
			return NewValidationError("recipient", "must be a 0x-prefixed 40-hex-character string", ErrInvalidAddress)
		}
	}

	return nil
}

// Ordinal is the event's position in blockchain order.
func (e *LedgerEvent) Ordinal() EventOrdinal {
	return EventOrdinal{
		BlockNumber:      e.BlockNumber,
		TransactionIndex: e.TransactionIndex,
		LogIndex:         e.LogIndex,
	}
}

// EventOrdinal totally orders ledger events within a chain.
type EventOrdinal struct {
	BlockNumber      uint64
	TransactionIndex uint32
	LogIndex         uint32
}

// After reports whether o sorts strictly after other.
func (o EventOrdinal) After(other EventOrdinal) bool {
	if o.BlockNumber != other.BlockNumber {
		return o.BlockNumber > other.BlockNumber
	}
	if o.TransactionIndex != other.TransactionIndex {
		return o.TransactionIndex > other.TransactionIndex
	}
	return o.LogIndex > other.LogIndex
}
