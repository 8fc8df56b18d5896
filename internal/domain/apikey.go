package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// API key naming constraints.
var (
	ErrEmptyKeyName   = errors.New("api key name cannot be empty")
	ErrKeyNameTooLong = errors.New("api key name must be at most 100 characters")
)

// APIKey is a long-lived bearer credential owned by a user. Only a bcrypt
// hash of the secret half is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"` // public identifier half, used for lookup
	KeyHash    string     `json:"-"`      // never expose the hash
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// NewAPIKey creates an APIKey record for the given owner. The prefix and
// hash are produced by the auth layer's key codec.
func NewAPIKey(userID uuid.UUID, name, prefix, keyHash string) (*APIKey, error) {
	if userID == uuid.Nil {
		return nil, NewValidationError("user_id", "cannot be empty", ErrInvalidID)
	}
	if name == "" {
		return nil, NewValidationError("name", "cannot be empty", ErrEmptyKeyName)
	}
	if len(name) > 100 {
		return nil, NewValidationError("name", "must be at most 100 characters", ErrKeyNameTooLong)
	}

	return &APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Prefix:    prefix,
		KeyHash:   keyHash,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Revoked reports whether the key has been revoked.
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}
