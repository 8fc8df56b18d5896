package service_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/config"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/service/auth"
	"github.com/positionhq/position-api/internal/store"
	"github.com/spruceid/siwe-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const walletTestDomain = "app.positionhq.io"

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*fakeUserStore)(nil)

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, store.ErrUserNotFound
}

// fakeWalletStore is an in-memory WalletStore.
type fakeWalletStore struct {
	wallets map[string]*domain.WalletAddress // (address, chain) key
}

var _ store.WalletStore = (*fakeWalletStore)(nil)

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[string]*domain.WalletAddress)}
}

func walletKey(address string, chainID int64) string {
	return fmt.Sprintf("%d:%s", chainID, domain.NormalizeAddress(address))
}

func (s *fakeWalletStore) Create(ctx context.Context, wallet *domain.WalletAddress) error {
	key := walletKey(wallet.Address, wallet.ChainID)
	if _, ok := s.wallets[key]; ok {
		return store.ErrWalletExists
	}
	s.wallets[key] = wallet
	return nil
}

func (s *fakeWalletStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletAddress, error) {
	var out []domain.WalletAddress
	for _, wallet := range s.wallets {
		if wallet.UserID == userID {
			out = append(out, *wallet)
		}
	}
	return out, nil
}

func (s *fakeWalletStore) GetByAddress(ctx context.Context, address string, chainID int64) (*domain.WalletAddress, error) {
	if wallet, ok := s.wallets[walletKey(address, chainID)]; ok {
		return wallet, nil
	}
	return nil, store.ErrWalletNotFound
}

// walletFixture wires a wallet service over fakes with a real SIWE verifier
// and session service.
type walletFixture struct {
	svc      *service.WalletService
	users    *fakeUserStore
	wallets  *fakeWalletStore
	sessions auth.SessionService
	key      *ecdsa.PrivateKey
}

func newWalletFixture(t *testing.T) *walletFixture {
	t.Helper()

	sessions, err := auth.NewSessionService(config.AuthConfig{
		SessionSecret:          "0123456789abcdef0123456789abcdef",
		SessionLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	users := newFakeUserStore()
	wallets := newFakeWalletStore()
	nonces := auth.NewNonceStore(5 * time.Minute)
	verifier := auth.NewSIWEVerifier(walletTestDomain, nonces)
	svc := service.NewWalletService(users, wallets, nonces, verifier, sessions, nil)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return &walletFixture{svc: svc, users: users, wallets: wallets, sessions: sessions, key: key}
}

// signedLogin builds and signs a SIWE message for the given key, using a
// fresh nonce from the service.
func (f *walletFixture) signedLogin(t *testing.T, key *ecdsa.PrivateKey, chainID int) (message, signature string) {
	t.Helper()

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	msg, err := siwe.InitMessage(walletTestDomain, address, "https://"+walletTestDomain, f.svc.IssueNonce(), map[string]interface{}{
		"chainId":  chainID,
		"issuedAt": time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	message = msg.String()
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))
	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)
	sig[64] += 27

	return message, hexutil.Encode(sig)
}

func TestLoginFirstSignInCreatesUser(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	message, signature := f.signedLogin(t, f.key, 1)
	result, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	assert.True(t, result.NewUser)
	assert.True(t, result.Wallet.IsPrimary)
	assert.Equal(t, result.User.ID, result.Wallet.UserID)
	assert.Equal(t, crypto.PubkeyToAddress(f.key.PublicKey).Hex(), result.Wallet.Address)

	claims, err := f.sessions.ValidateSession(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}

func TestLoginReturningWallet(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	message, signature := f.signedLogin(t, f.key, 1)
	first, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	message, signature = f.signedLogin(t, f.key, 1)
	second, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	assert.False(t, second.NewUser)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLoginRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	message, _ := f.signedLogin(t, f.key, 1)
	// Sign the victim's message with a different key.
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sig, err := crypto.Sign(crypto.Keccak256Hash([]byte(prefixed)).Bytes(), other)
	require.NoError(t, err)
	sig[64] += 27

	_, err = f.svc.Login(ctx, message, hexutil.Encode(sig))
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)

	assert.Empty(t, f.users.users, "no user is created on a failed login")
}

func TestLinkWallet(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	message, signature := f.signedLogin(t, f.key, 1)
	login, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	secondKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	message, signature = f.signedLogin(t, secondKey, 1)
	linked, err := f.svc.LinkWallet(ctx, login.User.ID, message, signature)
	require.NoError(t, err)

	assert.False(t, linked.IsPrimary)
	assert.Equal(t, login.User.ID, linked.UserID)

	wallets, err := f.wallets.ListByUser(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Len(t, wallets, 2)
}

func TestLinkWalletAlreadyRegistered(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	message, signature := f.signedLogin(t, f.key, 1)
	login, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	// Linking the wallet that already signed in is a conflict.
	message, signature = f.signedLogin(t, f.key, 1)
	_, err = f.svc.LinkWallet(ctx, login.User.ID, message, signature)
	assert.ErrorIs(t, err, service.ErrWalletAlreadyRegistered)
}

func TestLoadPrincipal(t *testing.T) {
	t.Parallel()

	f := newWalletFixture(t)
	ctx := context.Background()

	message, signature := f.signedLogin(t, f.key, 1)
	login, err := f.svc.Login(ctx, message, signature)
	require.NoError(t, err)

	principal, err := f.svc.LoadPrincipal(ctx, login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, principal.ID)
	assert.Len(t, principal.Wallets, 1)

	_, err = f.svc.LoadPrincipal(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
