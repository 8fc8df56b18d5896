package auth

import "errors"

// Common authentication service errors.
var (
	// ErrInvalidToken indicates the session token format is invalid or the
	// signature doesn't match.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken indicates the session token has expired.
	ErrExpiredToken = errors.New("session token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in
	// the future).
	ErrTokenNotYetValid = errors.New("session token not yet valid")

	// ErrWrongTokenType indicates a token of the wrong type was presented,
	// e.g. something other than a session token.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrInvalidAPIKey indicates the API key is malformed, unknown, revoked,
	// or its secret does not match the stored hash.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrNotAPIKey indicates the bearer token does not carry the API key
	// prefix; the caller should try the next authentication scheme.
	ErrNotAPIKey = errors.New("token is not an api key")

	// ErrInvalidSIWEMessage indicates the SIWE message failed to parse or
	// its fields (domain, chain, expiry) are unacceptable.
	ErrInvalidSIWEMessage = errors.New("invalid SIWE message")

	// ErrInvalidSignature indicates the SIWE signature does not recover to
	// the message's address.
	ErrInvalidSignature = errors.New("invalid SIWE signature")

	// ErrNonceInvalid indicates the SIWE nonce is unknown, expired, or was
	// already consumed.
	ErrNonceInvalid = errors.New("nonce is invalid or already used")
)
