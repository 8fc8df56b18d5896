package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PostgresPoolStore implements the store.PoolStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPoolStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPoolStore creates a new PostgreSQL implementation of the
// PoolStore interface.
func NewPostgresPoolStore(db store.DBTX, log *slog.Logger) *PostgresPoolStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresPoolStore{
		db:     db,
		logger: log.With(slog.String("component", "pool_store")),
	}
}

// Ensure PostgresPoolStore implements store.PoolStore interface
var _ store.PoolStore = (*PostgresPoolStore)(nil)

// Create implements store.PoolStore.Create. Pool discovery is idempotent:
// when the (chain, address) pair already exists, the existing row is
// returned with its tokens populated.
func (s *PostgresPoolStore) Create(ctx context.Context, pool *domain.Pool) (*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO pools (id, chain_id, address, protocol, token0_id, token1_id, fee_tier, tick_spacing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		pool.ID,
		pool.ChainID,
		pool.Address,
		pool.Protocol,
		pool.Token0.ID,
		pool.Token1.ID,
		pool.FeeTier,
		pool.TickSpacing,
		pool.CreatedAt,
		pool.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("pool already known, returning existing row",
				slog.Int64("chain_id", pool.ChainID),
				slog.String("address", pool.Address))
			return s.GetByAddress(ctx, pool.ChainID, pool.Address)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: pool references unknown token", store.ErrInvalidEntity)
		}
		log.Error("failed to create pool",
			slog.String("error", err.Error()),
			slog.String("pool_id", pool.ID.String()))
		return nil, err
	}

	log.Info("pool created",
		slog.String("pool_id", pool.ID.String()),
		slog.Int64("chain_id", pool.ChainID),
		slog.String("address", pool.Address))
	return pool, nil
}

// poolQuery selects a pool joined with both of its tokens.
const poolQuery = `
	SELECT p.id, p.chain_id, p.address, p.protocol, p.fee_tier, p.tick_spacing, p.created_at, p.updated_at,
	       t0.id, t0.chain_id, t0.address, t0.symbol, t0.name, t0.decimals, t0.coingecko_id, t0.logo_uri, t0.created_at, t0.updated_at,
	       t1.id, t1.chain_id, t1.address, t1.symbol, t1.name, t1.decimals, t1.coingecko_id, t1.logo_uri, t1.created_at, t1.updated_at
	FROM pools p
	JOIN tokens t0 ON t0.id = p.token0_id
	JOIN tokens t1 ON t1.id = p.token1_id
`

// GetByID implements store.PoolStore.GetByID. Both tokens are populated on
// the returned pool.
// Returns store.ErrPoolNotFound if the pool does not exist.
func (s *PostgresPoolStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	return s.getOne(ctx, poolQuery+` WHERE p.id = $1`, id)
}

// GetByAddress implements store.PoolStore.GetByAddress. Both tokens are
// populated on the returned pool.
// Returns store.ErrPoolNotFound if the pool does not exist.
func (s *PostgresPoolStore) GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Pool, error) {
	return s.getOne(ctx, poolQuery+` WHERE p.chain_id = $1 AND p.address = $2`, chainID, domain.NormalizeAddress(address))
}

// getOne runs a single-row pool query.
func (s *PostgresPoolStore) getOne(ctx context.Context, query string, args ...any) (*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var pool domain.Pool
	var token0, token1 domain.Token

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&pool.ID, &pool.ChainID, &pool.Address, &pool.Protocol, &pool.FeeTier, &pool.TickSpacing, &pool.CreatedAt, &pool.UpdatedAt,
		&token0.ID, &token0.ChainID, &token0.Address, &token0.Symbol, &token0.Name, &token0.Decimals, &token0.CoingeckoID, &token0.LogoURI, &token0.CreatedAt, &token0.UpdatedAt,
		&token1.ID, &token1.ChainID, &token1.Address, &token1.Symbol, &token1.Name, &token1.Decimals, &token1.CoingeckoID, &token1.LogoURI, &token1.CreatedAt, &token1.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPoolNotFound
		}
		log.Error("failed to get pool", slog.String("error", err.Error()))
		return nil, err
	}

	pool.Token0 = &token0
	pool.Token1 = &token1
	return &pool, nil
}
