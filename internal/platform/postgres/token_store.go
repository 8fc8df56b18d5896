package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PostgresTokenStore implements the store.TokenStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a new PostgreSQL implementation of the
// TokenStore interface.
func NewPostgresTokenStore(db store.DBTX, log *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: log.With(slog.String("component", "token_store")),
	}
}

// Ensure PostgresTokenStore implements store.TokenStore interface
var _ store.TokenStore = (*PostgresTokenStore)(nil)

const tokenColumns = `id, chain_id, address, symbol, name, decimals, coingecko_id, logo_uri, created_at, updated_at`

// Create implements store.TokenStore.Create. Token discovery is idempotent:
// when the (chain, address) pair already exists, the existing row is
// returned unchanged.
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.Token) (*domain.Token, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		token.ID,
		token.ChainID,
		token.Address,
		token.Symbol,
		token.Name,
		token.Decimals,
		token.CoingeckoID,
		token.LogoURI,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("token already known, returning existing row",
				slog.Int64("chain_id", token.ChainID),
				slog.String("address", token.Address))
			return s.GetByAddress(ctx, token.ChainID, token.Address)
		}
		log.Error("failed to create token",
			slog.String("error", err.Error()),
			slog.String("token_id", token.ID.String()))
		return nil, err
	}

	log.Info("token created",
		slog.String("token_id", token.ID.String()),
		slog.Int64("chain_id", token.ChainID),
		slog.String("symbol", token.Symbol))
	return token, nil
}

// GetByID implements store.TokenStore.GetByID
// Returns store.ErrTokenNotFound if the token does not exist.
func (s *PostgresTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`
	return s.scanOne(ctx, query, id)
}

// GetByAddress implements store.TokenStore.GetByAddress
// Returns store.ErrTokenNotFound if the token does not exist.
func (s *PostgresTokenStore) GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE chain_id = $1 AND address = $2`
	return s.scanOne(ctx, query, chainID, domain.NormalizeAddress(address))
}

// Search implements store.TokenStore.Search. Symbol and name match
// case-insensitively as prefixes; address matches exactly.
func (s *PostgresTokenStore) Search(ctx context.Context, filter store.TokenSearch) ([]domain.Token, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE chain_id = $1`
	args := []any{filter.ChainID}

	if filter.Symbol != "" {
		args = append(args, filter.Symbol+"%")
		query += ` AND symbol ILIKE $` + itoa(len(args))
	}
	if filter.Name != "" {
		args = append(args, filter.Name+"%")
		query += ` AND name ILIKE $` + itoa(len(args))
	}
	if filter.Address != "" {
		args = append(args, domain.NormalizeAddress(filter.Address))
		query += ` AND address = $` + itoa(len(args))
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY symbol ASC LIMIT $` + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to search tokens",
			slog.String("error", err.Error()),
			slog.Int64("chain_id", filter.ChainID))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tokens := []domain.Token{}
	for rows.Next() {
		var t domain.Token
		if err := scanToken(rows.Scan, &t); err != nil {
			log.Error("failed to scan token row", slog.String("error", err.Error()))
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return tokens, nil
}

// scanOne runs a single-row token query.
func (s *PostgresTokenStore) scanOne(ctx context.Context, query string, args ...any) (*domain.Token, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var t domain.Token
	err := scanToken(s.db.QueryRowContext(ctx, query, args...).Scan, &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		log.Error("failed to get token", slog.String("error", err.Error()))
		return nil, err
	}
	return &t, nil
}

// scanToken scans a token row in tokenColumns order.
func scanToken(scan func(...any) error, t *domain.Token) error {
	return scan(
		&t.ID,
		&t.ChainID,
		&t.Address,
		&t.Symbol,
		&t.Name,
		&t.Decimals,
		&t.CoingeckoID,
		&t.LogoURI,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// itoa renders a positional-parameter index.
func itoa(n int) string {
	return strconv.Itoa(n)
}
