package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PostgresWalletStore implements the store.WalletStore interface
// using a PostgreSQL database as the storage backend.
type PostgresWalletStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresWalletStore creates a new PostgreSQL implementation of the
// WalletStore interface.
func NewPostgresWalletStore(db store.DBTX, log *slog.Logger) *PostgresWalletStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresWalletStore{
		db:     db,
		logger: log.With(slog.String("component", "wallet_store")),
	}
}

// Ensure PostgresWalletStore implements store.WalletStore interface
var _ store.WalletStore = (*PostgresWalletStore)(nil)

// Create implements store.WalletStore.Create
// Returns store.ErrWalletExists if the (address, chain) pair is already bound.
func (s *PostgresWalletStore) Create(ctx context.Context, wallet *domain.WalletAddress) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO wallet_addresses (id, user_id, address, chain_id, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		wallet.ID,
		wallet.UserID,
		domain.NormalizeAddress(wallet.Address),
		wallet.ChainID,
		wallet.IsPrimary,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("wallet address already registered",
				slog.String("address", wallet.Address),
				slog.Int64("chain_id", wallet.ChainID))
			return store.ErrWalletExists
		}
		log.Error("failed to create wallet",
			slog.String("error", err.Error()),
			slog.String("wallet_id", wallet.ID.String()))
		return err
	}

	log.Info("wallet linked",
		slog.String("wallet_id", wallet.ID.String()),
		slog.String("user_id", wallet.UserID.String()),
		slog.Int64("chain_id", wallet.ChainID))
	return nil
}

// ListByUser implements store.WalletStore.ListByUser
func (s *PostgresWalletStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WalletAddress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, address, chain_id, is_primary, created_at, updated_at
		FROM wallet_addresses
		WHERE user_id = $1
		ORDER BY is_primary DESC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list wallets",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	wallets := []domain.WalletAddress{}
	for rows.Next() {
		var w domain.WalletAddress
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.ChainID, &w.IsPrimary, &w.CreatedAt, &w.UpdatedAt); err != nil {
			log.Error("failed to scan wallet row", slog.String("error", err.Error()))
			return nil, err
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return wallets, nil
}

// GetByAddress implements store.WalletStore.GetByAddress
// Returns store.ErrWalletNotFound if no binding exists.
func (s *PostgresWalletStore) GetByAddress(ctx context.Context, address string, chainID int64) (*domain.WalletAddress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, address, chain_id, is_primary, created_at, updated_at
		FROM wallet_addresses
		WHERE address = $1 AND chain_id = $2
	`

	var w domain.WalletAddress
	err := s.db.QueryRowContext(ctx, query, domain.NormalizeAddress(address), chainID).Scan(
		&w.ID, &w.UserID, &w.Address, &w.ChainID, &w.IsPrimary, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrWalletNotFound
		}
		log.Error("failed to get wallet by address",
			slog.String("error", err.Error()),
			slog.Int64("chain_id", chainID))
		return nil, err
	}

	return &w, nil
}
