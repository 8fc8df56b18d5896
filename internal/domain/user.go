package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// addressRegex matches a checksummed or lowercase Ethereum address.
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// txHashRegex matches a 32-byte transaction hash.
var txHashRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsValidAddress reports whether s is a well-formed Ethereum address.
func IsValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}

// IsValidTxHash reports whether s is a well-formed transaction hash.
func IsValidTxHash(s string) bool {
	return txHashRegex.MatchString(s)
}

// User represents a registered user of the platform. Users are created the
// first time a wallet signs in via SIWE; profile fields are optional.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with a generated ID and current timestamps.
func NewUser(name, email string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WalletAddress is a wallet bound to a user account. A given
// (address, chain) pair belongs to at most one user.
type WalletAddress struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Address   string    `json:"address"`
	ChainID   int64     `json:"chain_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWalletAddress creates a wallet binding for the given user.
// Returns an error if the address or chain ID is malformed.
func NewWalletAddress(userID uuid.UUID, address string, chainID int64, isPrimary bool) (*WalletAddress, error) {
	if userID == uuid.Nil {
		return nil, NewValidationError("user_id", "cannot be empty", ErrInvalidID)
	}
	if !IsValidAddress(address) {
		return nil, NewValidationError("address", "must be a 0x-prefixed 40-hex-character string", ErrInvalidAddress)
	}
	if chainID <= 0 {
		return nil, NewValidationError("chain_id", "must be positive", ErrInvalidChainID)
	}

	now := time.Now().UTC()
	return &WalletAddress{
		ID:        uuid.New(),
		UserID:    userID,
		Address:   address,
		ChainID:   chainID,
		IsPrimary: isPrimary,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AuthenticatedUser is the principal resolved for a request. It is composed
// once per request by the authentication middleware and never persisted.
type AuthenticatedUser struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Image   string
	Wallets []WalletAddress
}
