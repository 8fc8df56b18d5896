package auth

import (
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// API key format: pk_<public>_<secret>. The public half identifies the key
// row; only a bcrypt hash of the secret half is stored.
const (
	// APIKeyMarker distinguishes API keys from session JWTs in the
	// Authorization header.
	APIKeyMarker = "pk_"

	publicLen = 12
	secretLen = 32
)

// alphabet is the character set for generated key material.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratedKey is the result of minting a new API key. Plaintext is shown
// to the caller exactly once and never stored.
type GeneratedKey struct {
	Plaintext string // pk_<public>_<secret>
	Prefix    string // pk_<public>, persisted for lookup
	Hash      string // bcrypt hash of the secret half
}

// GenerateAPIKey mints a new API key from a cryptographically random source.
func GenerateAPIKey() (*GeneratedKey, error) {
	public, err := randomString(publicLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key public half: %w", err)
	}
	secret, err := randomString(secretLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key secret half: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash key secret: %w", err)
	}

	prefix := APIKeyMarker + public
	return &GeneratedKey{
		Plaintext: prefix + "_" + secret,
		Prefix:    prefix,
		Hash:      string(hash),
	}, nil
}

// IsAPIKey reports whether the bearer token carries the API key marker.
func IsAPIKey(token string) bool {
	return strings.HasPrefix(token, APIKeyMarker)
}

// SplitAPIKey splits a plaintext key into its lookup prefix and secret half.
// Returns ErrNotAPIKey when the marker is absent and ErrInvalidAPIKey when
// the shape is wrong.
func SplitAPIKey(token string) (prefix, secret string, err error) {
	if !IsAPIKey(token) {
		return "", "", ErrNotAPIKey
	}

	rest := strings.TrimPrefix(token, APIKeyMarker)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidAPIKey
	}

	return APIKeyMarker + parts[0], parts[1], nil
}

// VerifyAPIKeySecret compares a presented secret against the stored hash.
// Returns ErrInvalidAPIKey on mismatch.
func VerifyAPIKeySecret(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// randomString returns n characters drawn uniformly from alphabet.
func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}
