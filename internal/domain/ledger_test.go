package domain_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTxHash    = "0x" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12" + "cd34" + "ef56" + "ab12"
	testRecipient = "0x1234567890abcdef1234567890abcdef12345678"
)

// validEvent returns a well-formed event of the given type.
func validEvent(t domain.EventType) *domain.LedgerEvent {
	event := &domain.LedgerEvent{
		Type:            t,
		BlockNumber:     18_000_000,
		LogIndex:        3,
		TransactionHash: testTxHash,
		EventAt:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Amount0:         big.NewInt(1000),
		Amount1:         big.NewInt(2000),
	}
	switch t {
	case domain.EventIncreaseLiquidity, domain.EventDecreaseLiquidity:
		event.Liquidity = big.NewInt(500)
	case domain.EventCollect:
		event.Recipient = testRecipient
	}
	return event
}

func TestLedgerEventValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(e *domain.LedgerEvent)
		base    domain.EventType
		wantErr error
	}{
		{
			name:   "valid increase",
			base:   domain.EventIncreaseLiquidity,
			mutate: func(e *domain.LedgerEvent) {},
		},
		{
			name:   "valid decrease",
			base:   domain.EventDecreaseLiquidity,
			mutate: func(e *domain.LedgerEvent) {},
		},
		{
			name:   "valid collect",
			base:   domain.EventCollect,
			mutate: func(e *domain.LedgerEvent) {},
		},
		{
			name:    "unknown event type",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Type = "SWAP" },
			wantErr: domain.ErrInvalidEventType,
		},
		{
			name:    "malformed transaction hash",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.TransactionHash = "0x1234" },
			wantErr: domain.ErrInvalidTxHash,
		},
		{
			name:    "increase missing liquidity",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Liquidity = nil },
			wantErr: domain.ErrMissingLiquidity,
		},
		{
			name:    "decrease missing liquidity",
			base:    domain.EventDecreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Liquidity = nil },
			wantErr: domain.ErrMissingLiquidity,
		},
		{
			name:    "increase carrying recipient",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Recipient = testRecipient },
			wantErr: domain.ErrUnexpectedRecipient,
		},
		{
			name:    "collect missing recipient",
			base:    domain.EventCollect,
			mutate:  func(e *domain.LedgerEvent) { e.Recipient = "" },
			wantErr: domain.ErrMissingRecipient,
		},
		{
			name:    "collect with malformed recipient",
			base:    domain.EventCollect,
			mutate:  func(e *domain.LedgerEvent) { e.Recipient = "not-an-address" },
			wantErr: domain.ErrInvalidAddress,
		},
		{
			name:    "negative amount",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Amount0 = big.NewInt(-1) },
			wantErr: domain.ErrNegativeAmount,
		},
		{
			name:    "negative liquidity",
			base:    domain.EventDecreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.Liquidity = big.NewInt(-5) },
			wantErr: domain.ErrNegativeAmount,
		},
		{
			name:    "missing amounts",
			base:    domain.EventCollect,
			mutate:  func(e *domain.LedgerEvent) { e.Amount0 = nil },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing timestamp",
			base:    domain.EventIncreaseLiquidity,
			mutate:  func(e *domain.LedgerEvent) { e.EventAt = time.Time{} },
			wantErr: domain.ErrValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			event := validEvent(tc.base)
			tc.mutate(event)

			err := event.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestEventOrdinalAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b domain.EventOrdinal
		want bool
	}{
		{
			name: "later block wins",
			a:    domain.EventOrdinal{BlockNumber: 101},
			b:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 9, LogIndex: 9},
			want: true,
		},
		{
			name: "same block, later transaction wins",
			a:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 2},
			b:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 1, LogIndex: 9},
			want: true,
		},
		{
			name: "same transaction, later log wins",
			a:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 1, LogIndex: 5},
			b:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 1, LogIndex: 4},
			want: true,
		},
		{
			name: "equal ordinals are not after",
			a:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 1, LogIndex: 4},
			b:    domain.EventOrdinal{BlockNumber: 100, TransactionIndex: 1, LogIndex: 4},
			want: false,
		},
		{
			name: "earlier block is not after",
			a:    domain.EventOrdinal{BlockNumber: 99, TransactionIndex: 9, LogIndex: 9},
			b:    domain.EventOrdinal{BlockNumber: 100},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.a.After(tc.b))
		})
	}
}
