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
	"github.com/positionhq/position-api/internal/task"
)

// APIKeyService manages the lifecycle of API keys and validates presented
// keys on the request path.
type APIKeyService struct {
	keys   store.APIKeyStore
	runner *task.Runner
	logger *slog.Logger
}

// NewAPIKeyService creates an APIKeyService. runner carries the detached
// last-used touches; it may be nil, in which case usage is not recorded.
func NewAPIKeyService(keys store.APIKeyStore, runner *task.Runner, log *slog.Logger) *APIKeyService {
	if keys == nil {
		panic("keys store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &APIKeyService{
		keys:   keys,
		runner: runner,
		logger: log.With(slog.String("component", "apikey_service")),
	}
}

// Create mints a new API key for the user. The returned plaintext is shown
// exactly once; only the bcrypt hash of its secret half is stored.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, name string) (*domain.APIKey, string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	generated, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate api key: %w", err)
	}

	key, err := domain.NewAPIKey(userID, name, generated.Prefix, generated.Hash)
	if err != nil {
		return nil, "", err
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("failed to save api key: %w", err)
	}

	log.Info("api key minted",
		slog.String("key_id", key.ID.String()),
		slog.String("user_id", userID.String()))
	return key, generated.Plaintext, nil
}

// List returns the user's non-revoked keys.
func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// Revoke revokes one of the user's keys.
// Returns ErrAPIKeyNotFound if the key does not exist, was already revoked,
// or is owned by a different user.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.keys.Revoke(ctx, userID, keyID); err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrAPIKeyNotFound, keyID)
		}
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}

// Validate checks a presented plaintext key against the stored hash and
// returns the key record. On success the last-used timestamp is recorded
// off the request path; that write is best-effort and never awaited.
//
// Returns auth.ErrInvalidAPIKey for unknown, malformed or mismatched keys.
func (s *APIKeyService) Validate(ctx context.Context, plaintext string) (*domain.APIKey, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	prefix, secret, err := auth.SplitAPIKey(plaintext)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.GetByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			// Unknown prefix and bad secret are indistinguishable to the
			// caller.
			return nil, auth.ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	if err := auth.VerifyAPIKeySecret(key.KeyHash, secret); err != nil {
		log.Debug("api key secret mismatch", slog.String("key_id", key.ID.String()))
		return nil, err
	}

	if s.runner != nil {
		keyID := key.ID
		s.runner.Submit("apikey_touch_last_used", func(ctx context.Context) error {
			return s.keys.TouchLastUsed(ctx, keyID)
		})
	}

	return key, nil
}
