package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "lowercase", address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", want: true},
		{name: "checksummed", address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", want: true},
		{name: "missing prefix", address: "a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", want: false},
		{name: "too short", address: "0xa0b8", want: false},
		{name: "too long", address: "0x" + strings.Repeat("a", 41), want: false},
		{name: "non-hex characters", address: "0x" + strings.Repeat("z", 40), want: false},
		{name: "empty", address: "", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, domain.IsValidAddress(tc.address))
		})
	}
}

func TestIsValidTxHash(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.IsValidTxHash("0x"+strings.Repeat("ab", 32)))
	assert.False(t, domain.IsValidTxHash("0x"+strings.Repeat("ab", 20)))
	assert.False(t, domain.IsValidTxHash(strings.Repeat("ab", 32)))
	assert.False(t, domain.IsValidTxHash(""))
}

func TestNewWalletAddress(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	wallet, err := domain.NewWalletAddress(userID, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 1, true)
	require.NoError(t, err)
	assert.Equal(t, userID, wallet.UserID)
	assert.True(t, wallet.IsPrimary)

	_, err = domain.NewWalletAddress(uuid.Nil, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 1, true)
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = domain.NewWalletAddress(userID, "bad", 1, false)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = domain.NewWalletAddress(userID, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 0, false)
	assert.ErrorIs(t, err, domain.ErrInvalidChainID)
}

func TestNewAPIKey(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	key, err := domain.NewAPIKey(userID, "deploy bot", "pk_abc123def456", "$2a$10$hash")
	require.NoError(t, err)
	assert.False(t, key.Revoked())

	now := time.Now().UTC()
	key.RevokedAt = &now
	assert.True(t, key.Revoked())

	_, err = domain.NewAPIKey(userID, "", "pk_x", "h")
	assert.ErrorIs(t, err, domain.ErrEmptyKeyName)

	_, err = domain.NewAPIKey(userID, strings.Repeat("n", 101), "pk_x", "h")
	assert.ErrorIs(t, err, domain.ErrKeyNameTooLong)

	_, err = domain.NewAPIKey(uuid.Nil, "name", "pk_x", "h")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestNewPositionTickValidation(t *testing.T) {
	t.Parallel()

	userID, poolID := uuid.New(), uuid.New()
	openedAt := time.Now().UTC()

	position, err := domain.NewPosition(userID, poolID, domain.ProtocolUniswapV3, 1, "42", -100, 100, openedAt)
	require.NoError(t, err)
	assert.True(t, position.IsActive)
	assert.Zero(t, position.Liquidity.Sign())

	_, err = domain.NewPosition(userID, poolID, domain.ProtocolUniswapV3, 1, "42", 100, 100, openedAt)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = domain.NewPosition(userID, poolID, domain.ProtocolUniswapV3, 1, "42", 200, 100, openedAt)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = domain.NewPosition(userID, poolID, "sushiswap", 1, "42", -100, 100, openedAt)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
