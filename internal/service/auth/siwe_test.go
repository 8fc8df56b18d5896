package auth

import (
	"crypto/ecdsa"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spruceid/siwe-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siweDomain = "app.positionhq.io"

// buildSIWEMessage renders a SIWE message for the key's address using a
// nonce issued by the store.
func buildSIWEMessage(t *testing.T, key *ecdsa.PrivateKey, nonces *NonceStore, chainID int) string {
	t.Helper()

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message, err := siwe.InitMessage(siweDomain, address, "https://"+siweDomain, nonces.Issue(), map[string]interface{}{
		"chainId":  chainID,
		"issuedAt": time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	return message.String()
}

// signPersonal produces an EIP-191 personal-sign signature over the message.
func signPersonal(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

func TestSIWEVerify(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	t.Run("valid message and signature", func(t *testing.T) {
		t.Parallel()

		nonces := NewNonceStore(5 * time.Minute)
		verifier := NewSIWEVerifier(siweDomain, nonces)

		message := buildSIWEMessage(t, key, nonces, 1)
		wallet, err := verifier.Verify(message, signPersonal(t, key, message))
		require.NoError(t, err)

		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), wallet.Address)
		assert.Equal(t, int64(1), wallet.ChainID)
	})

	t.Run("nonce is single use", func(t *testing.T) {
		t.Parallel()

		nonces := NewNonceStore(5 * time.Minute)
		verifier := NewSIWEVerifier(siweDomain, nonces)

		message := buildSIWEMessage(t, key, nonces, 1)
		signature := signPersonal(t, key, message)

		_, err := verifier.Verify(message, signature)
		require.NoError(t, err)

		_, err = verifier.Verify(message, signature)
		assert.ErrorIs(t, err, ErrNonceInvalid)
	})

	t.Run("unparseable message", func(t *testing.T) {
		t.Parallel()

		verifier := NewSIWEVerifier(siweDomain, NewNonceStore(5*time.Minute))
		_, err := verifier.Verify("not a siwe message", "0xdeadbeef")
		assert.ErrorIs(t, err, ErrInvalidSIWEMessage)
	})

	t.Run("nonce the server never issued", func(t *testing.T) {
		t.Parallel()

		issuing := NewNonceStore(5 * time.Minute)
		verifying := NewNonceStore(5 * time.Minute)
		verifier := NewSIWEVerifier(siweDomain, verifying)

		message := buildSIWEMessage(t, key, issuing, 1)
		_, err := verifier.Verify(message, signPersonal(t, key, message))
		assert.ErrorIs(t, err, ErrNonceInvalid)
	})

	t.Run("signature from a different key", func(t *testing.T) {
		t.Parallel()

		nonces := NewNonceStore(5 * time.Minute)
		verifier := NewSIWEVerifier(siweDomain, nonces)

		other, err := crypto.GenerateKey()
		require.NoError(t, err)

		message := buildSIWEMessage(t, key, nonces, 1)
		_, err = verifier.Verify(message, signPersonal(t, other, message))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("non-mainnet chain id round-trips", func(t *testing.T) {
		t.Parallel()

		nonces := NewNonceStore(5 * time.Minute)
		verifier := NewSIWEVerifier(siweDomain, nonces)

		message := buildSIWEMessage(t, key, nonces, 42161)
		wallet, err := verifier.Verify(message, signPersonal(t, key, message))
		require.NoError(t, err)
		assert.Equal(t, int64(42161), wallet.ChainID)
	})
}
