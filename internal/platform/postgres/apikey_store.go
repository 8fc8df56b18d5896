package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PostgresAPIKeyStore implements the store.APIKeyStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAPIKeyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAPIKeyStore creates a new PostgreSQL implementation of the
// APIKeyStore interface.
func NewPostgresAPIKeyStore(db store.DBTX, log *slog.Logger) *PostgresAPIKeyStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresAPIKeyStore{
		db:     db,
		logger: log.With(slog.String("component", "apikey_store")),
	}
}

// Ensure PostgresAPIKeyStore implements store.APIKeyStore interface
var _ store.APIKeyStore = (*PostgresAPIKeyStore)(nil)

// Create implements store.APIKeyStore.Create
func (s *PostgresAPIKeyStore) Create(ctx context.Context, key *domain.APIKey) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO api_keys (id, user_id, name, prefix, key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		key.ID,
		key.UserID,
		key.Name,
		key.Prefix,
		key.KeyHash,
		key.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create api key",
			slog.String("error", err.Error()),
			slog.String("key_id", key.ID.String()))
		return err
	}

	log.Info("api key created",
		slog.String("key_id", key.ID.String()),
		slog.String("user_id", key.UserID.String()))
	return nil
}

// GetByPrefix implements store.APIKeyStore.GetByPrefix
// Returns store.ErrAPIKeyNotFound if no non-revoked key has the prefix.
func (s *PostgresAPIKeyStore) GetByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, name, prefix, key_hash, last_used_at, created_at, revoked_at
		FROM api_keys
		WHERE prefix = $1 AND revoked_at IS NULL
	`

	var key domain.APIKey
	err := s.db.QueryRowContext(ctx, query, prefix).Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.Prefix,
		&key.KeyHash,
		&key.LastUsedAt,
		&key.CreatedAt,
		&key.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		log.Error("failed to get api key by prefix",
			slog.String("error", err.Error()))
		return nil, err
	}

	return &key, nil
}

// ListByUser implements store.APIKeyStore.ListByUser
func (s *PostgresAPIKeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.APIKey, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, name, prefix, key_hash, last_used_at, created_at, revoked_at
		FROM api_keys
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list api keys",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	keys := []domain.APIKey{}
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Name,
			&key.Prefix,
			&key.KeyHash,
			&key.LastUsedAt,
			&key.CreatedAt,
			&key.RevokedAt,
		); err != nil {
			log.Error("failed to scan api key row", slog.String("error", err.Error()))
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return keys, nil
}

// Revoke implements store.APIKeyStore.Revoke
// Returns store.ErrAPIKeyNotFound if the key does not exist, was already
// revoked, or is owned by a different user.
func (s *PostgresAPIKeyStore) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE api_keys
		SET revoked_at = $1
		WHERE id = $2 AND user_id = $3 AND revoked_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), keyID, userID)
	if err != nil {
		log.Error("failed to revoke api key",
			slog.String("error", err.Error()),
			slog.String("key_id", keyID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("key_id", keyID.String()))
		return err
	}
	if rowsAffected == 0 {
		return store.ErrAPIKeyNotFound
	}

	log.Info("api key revoked",
		slog.String("key_id", keyID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// TouchLastUsed implements store.APIKeyStore.TouchLastUsed
func (s *PostgresAPIKeyStore) TouchLastUsed(ctx context.Context, keyID uuid.UUID) error {
	query := `
		UPDATE api_keys
		SET last_used_at = $1
		WHERE id = $2
	`
	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), keyID)
	return err
}
