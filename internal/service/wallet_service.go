package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/service/auth"
	"github.com/positionhq/position-api/internal/store"
)

// WalletService owns SIWE sign-in and wallet binding. A user is created the
// first time a wallet signs in; additional wallets are linked to the
// session user afterwards.
type WalletService struct {
	users    store.UserStore
	wallets  store.WalletStore
	nonces   *auth.NonceStore
	verifier *auth.SIWEVerifier
	sessions auth.SessionService
	logger   *slog.Logger
}

// NewWalletService creates a WalletService.
func NewWalletService(users store.UserStore, wallets store.WalletStore, nonces *auth.NonceStore, verifier *auth.SIWEVerifier, sessions auth.SessionService, log *slog.Logger) *WalletService {
	if users == nil {
		panic("users store cannot be nil")
	}
	if wallets == nil {
		panic("wallets store cannot be nil")
	}
	if nonces == nil {
		panic("nonce store cannot be nil")
	}
	if verifier == nil {
		panic("siwe verifier cannot be nil")
	}
	if sessions == nil {
		panic("session service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &WalletService{
		users:    users,
		wallets:  wallets,
		nonces:   nonces,
		verifier: verifier,
		sessions: sessions,
		logger:   log.With(slog.String("component", "wallet_service")),
	}
}

// IssueNonce returns a fresh one-time SIWE nonce.
func (s *WalletService) IssueNonce() string {
	return s.nonces.Issue()
}

// LoginResult is the outcome of a successful SIWE sign-in.
type LoginResult struct {
	Token   string
	User    *domain.User
	Wallet  *domain.WalletAddress
	NewUser bool
}

// Login verifies a SIWE message and signature, creates the user and primary
// wallet on first sign-in, and issues a session token.
//
// Verification failures surface as auth.ErrInvalidSIWEMessage,
// auth.ErrInvalidSignature or auth.ErrNonceInvalid.
func (s *WalletService) Login(ctx context.Context, message, signature string) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	verified, err := s.verifier.Verify(message, signature)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	newUser := false

	wallet, err := s.wallets.GetByAddress(ctx, verified.Address, verified.ChainID)
	switch {
	case err == nil:
		user, err = s.users.GetByID(ctx, wallet.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet owner: %w", err)
		}

	case errors.Is(err, store.ErrWalletNotFound):
		user = domain.NewUser("", "")
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		wallet, err = domain.NewWalletAddress(user.ID, verified.Address, verified.ChainID, true)
		if err != nil {
			return nil, err
		}
		if err := s.wallets.Create(ctx, wallet); err != nil {
			if errors.Is(err, store.ErrWalletExists) {
				// Lost a race with a concurrent first sign-in for the same
				// wallet; use the binding that won.
				wallet, err = s.wallets.GetByAddress(ctx, verified.Address, verified.ChainID)
				if err != nil {
					return nil, fmt.Errorf("failed to reload wallet: %w", err)
				}
				user, err = s.users.GetByID(ctx, wallet.UserID)
				if err != nil {
					return nil, fmt.Errorf("failed to load wallet owner: %w", err)
				}
			} else {
				return nil, fmt.Errorf("failed to bind wallet: %w", err)
			}
		} else {
			newUser = true
		}

	default:
		return nil, fmt.Errorf("failed to look up wallet: %w", err)
	}

	token, err := s.sessions.IssueSession(ctx, user.ID, wallet.Address, wallet.ChainID)
	if err != nil {
		return nil, err
	}

	log.Info("wallet signed in",
		slog.String("user_id", user.ID.String()),
		slog.Int64("chain_id", wallet.ChainID),
		slog.Bool("new_user", newUser))

	return &LoginResult{
		Token:   token,
		User:    user,
		Wallet:  wallet,
		NewUser: newUser,
	}, nil
}

// LinkWallet verifies a SIWE message and binds the proven wallet to the
// session user as an additional (non-primary) wallet.
//
// Returns ErrWalletAlreadyRegistered when the wallet is already bound to an
// account.
func (s *WalletService) LinkWallet(ctx context.Context, userID uuid.UUID, message, signature string) (*domain.WalletAddress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	verified, err := s.verifier.Verify(message, signature)
	if err != nil {
		return nil, err
	}

	wallet, err := domain.NewWalletAddress(userID, verified.Address, verified.ChainID, false)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		if errors.Is(err, store.ErrWalletExists) {
			return nil, fmt.Errorf("%w: %s on chain %d", ErrWalletAlreadyRegistered, verified.Address, verified.ChainID)
		}
		return nil, fmt.Errorf("failed to bind wallet: %w", err)
	}

	log.Info("wallet linked",
		slog.String("user_id", userID.String()),
		slog.Int64("chain_id", wallet.ChainID))
	return wallet, nil
}

// LoadPrincipal composes the request principal for an authenticated user.
func (s *WalletService) LoadPrincipal(ctx context.Context, userID uuid.UUID) (*domain.AuthenticatedUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	return &domain.AuthenticatedUser{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Image:   user.Image,
		Wallets: wallets,
	}, nil
}
