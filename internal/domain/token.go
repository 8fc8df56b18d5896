package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token is an ERC-20 token discovered on a supported chain. The
// (chain_id, address) pair is unique; addresses are stored lowercased so
// lookups are case-insensitive.
type Token struct {
	ID          uuid.UUID `json:"id"`
	ChainID     int64     `json:"chain_id"`
	Address     string    `json:"address"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Decimals    int       `json:"decimals"`
	CoingeckoID string    `json:"coingecko_id,omitempty"`
	LogoURI     string    `json:"logo_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewToken creates a Token after validating its identity fields.
func NewToken(chainID int64, address, symbol, name string, decimals int) (*Token, error) {
	if chainID <= 0 {
		return nil, NewValidationError("chain_id", "must be positive", ErrInvalidChainID)
	}
	if !IsValidAddress(address) {
		return nil, NewValidationError("address", "must be a 0x-prefixed 40-hex-character string", ErrInvalidAddress)
	}
	if decimals < 0 || decimals > 255 {
		return nil, NewValidationError("decimals", "must be between 0 and 255", ErrValidation)
	}

	now := time.Now().UTC()
	return &Token{
		ID:        uuid.New(),
		ChainID:   chainID,
		Address:   NormalizeAddress(address),
		Symbol:    symbol,
		Name:      name,
		Decimals:  decimals,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeAddress lowercases an address for storage and comparison.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
