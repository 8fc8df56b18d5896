package auth

import (
	"fmt"

	"github.com/spruceid/siwe-go"
)

// SIWEVerifier checks Sign-In-With-Ethereum messages. The signature
// cryptography itself is delegated to the siwe library; this wrapper pins
// the expected domain and enforces one-time nonces.
type SIWEVerifier struct {
	domain string
	nonces *NonceStore
}

// NewSIWEVerifier creates a verifier bound to the given expected domain.
func NewSIWEVerifier(domain string, nonces *NonceStore) *SIWEVerifier {
	return &SIWEVerifier{domain: domain, nonces: nonces}
}

// VerifiedWallet is the outcome of a successful SIWE verification.
type VerifiedWallet struct {
	Address string
	ChainID int64
}

// Verify parses the SIWE message, checks its signature, and consumes its
// nonce. Returns ErrInvalidSIWEMessage for parse/field failures,
// ErrInvalidSignature for signature failures, and ErrNonceInvalid for
// unknown or reused nonces.
func (v *SIWEVerifier) Verify(messageStr, signature string) (*VerifiedWallet, error) {
	message, err := siwe.ParseMessage(messageStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSIWEMessage, err)
	}

	nonce := message.GetNonce()
	if err := v.nonces.Consume(nonce); err != nil {
		return nil, err
	}

	// Verify checks the EIP-191 signature plus the domain binding and the
	// message's own time window.
	if _, err := message.Verify(signature, &v.domain, &nonce, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return &VerifiedWallet{
		Address: message.GetAddress().Hex(),
		ChainID: int64(message.GetChainID()),
	}, nil
}
