package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// PostgresPositionStore implements the store.PositionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPositionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPositionStore creates a new PostgreSQL implementation of the
// PositionStore interface.
func NewPostgresPositionStore(db store.DBTX, log *slog.Logger) *PostgresPositionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresPositionStore{
		db:     db,
		logger: log.With(slog.String("component", "position_store")),
	}
}

// Ensure PostgresPositionStore implements store.PositionStore interface
var _ store.PositionStore = (*PostgresPositionStore)(nil)

// WithTx implements store.PositionStore.WithTx
func (s *PostgresPositionStore) WithTx(tx *sql.Tx) store.PositionStore {
	return &PostgresPositionStore{
		db:     tx,
		logger: s.logger,
	}
}

// sortColumns maps API sort fields to columns. Anything else falls back to
// created_at.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"openedAt":  "opened_at",
	"liquidity": "liquidity",
}

// Create implements store.PositionStore.Create
func (s *PostgresPositionStore) Create(ctx context.Context, position *domain.Position) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO positions (id, user_id, pool_id, protocol, chain_id, nft_id, tick_lower, tick_upper,
		                       liquidity, is_active, opened_at, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		position.ID,
		position.UserID,
		position.PoolID,
		position.Protocol,
		position.ChainID,
		position.NFTID,
		position.TickLower,
		position.TickUpper,
		numericFromBigInt(position.Liquidity),
		position.IsActive,
		position.OpenedAt,
		position.ClosedAt,
		position.CreatedAt,
		position.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("position already tracked",
				slog.String("user_id", position.UserID.String()),
				slog.String("nft_id", position.NFTID))
			return store.ErrDuplicate
		}
		log.Error("failed to create position",
			slog.String("error", err.Error()),
			slog.String("position_id", position.ID.String()))
		return err
	}

	log.Info("position created",
		slog.String("position_id", position.ID.String()),
		slog.String("user_id", position.UserID.String()),
		slog.Int64("chain_id", position.ChainID),
		slog.String("nft_id", position.NFTID))
	return nil
}

const positionColumns = `id, user_id, pool_id, protocol, chain_id, nft_id, tick_lower, tick_upper,
	liquidity, is_active, opened_at, closed_at, created_at, updated_at`

// GetByNFT implements store.PositionStore.GetByNFT. The query is scoped to
// the owning user: another user's position is indistinguishable from a
// missing one.
func (s *PostgresPositionStore) GetByNFT(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*domain.Position, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE user_id = $1 AND protocol = $2 AND chain_id = $3 AND nft_id = $4
	`

	position, err := scanPosition(s.db.QueryRowContext(ctx, query, userID, protocol, chainID, nftID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPositionNotFound
		}
		log.Error("failed to get position",
			slog.String("error", err.Error()),
			slog.String("nft_id", nftID))
		return nil, err
	}

	return position, nil
}

// List implements store.PositionStore.List
func (s *PostgresPositionStore) List(ctx context.Context, filter store.PositionFilter) ([]domain.Position, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := []string{"user_id = $1"}
	args := []any{filter.UserID}

	if len(filter.Protocols) > 0 {
		placeholders := make([]string, 0, len(filter.Protocols))
		for _, protocol := range filter.Protocols {
			args = append(args, protocol)
			placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
		}
		where = append(where, "protocol IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ChainID != 0 {
		args = append(args, filter.ChainID)
		where = append(where, "chain_id = $"+strconv.Itoa(len(args)))
	}
	switch filter.Status {
	case domain.PositionStatusActive:
		where = append(where, "is_active = TRUE")
	case domain.PositionStatusClosed:
		where = append(where, "is_active = FALSE")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM positions WHERE ` + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count positions", slog.String("error", err.Error()))
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit)
	limitParam := strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetParam := strconv.Itoa(len(args))

	query := `SELECT ` + positionColumns + ` FROM positions WHERE ` + whereClause +
		` ORDER BY ` + column + ` ` + direction +
		` LIMIT $` + limitParam + ` OFFSET $` + offsetParam

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list positions", slog.String("error", err.Error()))
		return nil, 0, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	positions := []domain.Position{}
	for rows.Next() {
		position, err := scanPosition(rows.Scan)
		if err != nil {
			log.Error("failed to scan position row", slog.String("error", err.Error()))
			return nil, 0, err
		}
		positions = append(positions, *position)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, 0, err
	}

	return positions, total, nil
}

// Update implements store.PositionStore.Update
func (s *PostgresPositionStore) Update(ctx context.Context, position *domain.Position) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE positions
		SET liquidity = $1, is_active = $2, closed_at = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		numericFromBigInt(position.Liquidity),
		position.IsActive,
		position.ClosedAt,
		position.UpdatedAt,
		position.ID,
	)
	if err != nil {
		log.Error("failed to update position",
			slog.String("error", err.Error()),
			slog.String("position_id", position.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrPositionNotFound
	}

	return nil
}

// Delete implements store.PositionStore.Delete. Ledger rows cascade.
func (s *PostgresPositionStore) Delete(ctx context.Context, userID, positionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM positions WHERE id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, positionID, userID)
	if err != nil {
		log.Error("failed to delete position",
			slog.String("error", err.Error()),
			slog.String("position_id", positionID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return store.ErrPositionNotFound
	}

	log.Info("position deleted",
		slog.String("position_id", positionID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// AppendEvent implements store.PositionStore.AppendEvent
// Returns store.ErrLedgerEventExists when the (transaction hash, log index)
// pair was already recorded for the position.
func (s *PostgresPositionStore) AppendEvent(ctx context.Context, event *domain.LedgerEvent) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO ledger_events (id, position_id, event_type, block_number, transaction_index, log_index,
		                           transaction_hash, event_at, liquidity, amount0, amount1, recipient, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var recipient any
	if event.Recipient != "" {
		recipient = domain.NormalizeAddress(event.Recipient)
	}

	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.PositionID,
		event.Type,
		int64(event.BlockNumber),
		int32(event.TransactionIndex),
		int32(event.LogIndex),
		strings.ToLower(event.TransactionHash),
		event.EventAt,
		numericFromBigInt(event.Liquidity),
		numericFromBigInt(event.Amount0),
		numericFromBigInt(event.Amount1),
		recipient,
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrLedgerEventExists
		}
		log.Error("failed to append ledger event",
			slog.String("error", err.Error()),
			slog.String("position_id", event.PositionID.String()),
			slog.String("tx_hash", event.TransactionHash))
		return err
	}

	log.Debug("ledger event appended",
		slog.String("position_id", event.PositionID.String()),
		slog.String("event_type", string(event.Type)),
		slog.Uint64("block_number", event.BlockNumber))
	return nil
}

const ledgerColumns = `id, position_id, event_type, block_number, transaction_index, log_index,
	transaction_hash, event_at, liquidity, amount0, amount1, recipient, created_at`

// ListEvents implements store.PositionStore.ListEvents
func (s *PostgresPositionStore) ListEvents(ctx context.Context, positionID uuid.UUID) ([]domain.LedgerEvent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_events
		WHERE position_id = $1
		ORDER BY block_number ASC, transaction_index ASC, log_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, positionID)
	if err != nil {
		log.Error("failed to list ledger events",
			slog.String("error", err.Error()),
			slog.String("position_id", positionID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	events := []domain.LedgerEvent{}
	for rows.Next() {
		event, err := scanLedgerEvent(rows.Scan)
		if err != nil {
			log.Error("failed to scan ledger event row", slog.String("error", err.Error()))
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return events, nil
}

// LastEvent implements store.PositionStore.LastEvent
// Returns store.ErrNotFound for an empty ledger.
func (s *PostgresPositionStore) LastEvent(ctx context.Context, positionID uuid.UUID) (*domain.LedgerEvent, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_events
		WHERE position_id = $1
		ORDER BY block_number DESC, transaction_index DESC, log_index DESC
		LIMIT 1
	`

	event, err := scanLedgerEvent(s.db.QueryRowContext(ctx, query, positionID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// scanPosition scans a position row in positionColumns order.
func scanPosition(scan func(...any) error) (*domain.Position, error) {
	var p domain.Position
	var liquidity string

	err := scan(
		&p.ID,
		&p.UserID,
		&p.PoolID,
		&p.Protocol,
		&p.ChainID,
		&p.NFTID,
		&p.TickLower,
		&p.TickUpper,
		&liquidity,
		&p.IsActive,
		&p.OpenedAt,
		&p.ClosedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Liquidity, err = bigIntFromNumeric(liquidity)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanLedgerEvent scans a ledger event row in ledgerColumns order.
func scanLedgerEvent(scan func(...any) error) (*domain.LedgerEvent, error) {
	var e domain.LedgerEvent
	var blockNumber int64
	var txIndex, logIndex int32
	var liquidity, recipient sql.NullString
	var amount0, amount1 string

	err := scan(
		&e.ID,
		&e.PositionID,
		&e.Type,
		&blockNumber,
		&txIndex,
		&logIndex,
		&e.TransactionHash,
		&e.EventAt,
		&liquidity,
		&amount0,
		&amount1,
		&recipient,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.BlockNumber = uint64(blockNumber)
	e.TransactionIndex = uint32(txIndex)
	e.LogIndex = uint32(logIndex)

	if liquidity.Valid {
		if e.Liquidity, err = bigIntFromNumeric(liquidity.String); err != nil {
			return nil, err
		}
	}
	if e.Amount0, err = bigIntFromNumeric(amount0); err != nil {
		return nil, err
	}
	if e.Amount1, err = bigIntFromNumeric(amount1); err != nil {
		return nil, err
	}
	if recipient.Valid {
		e.Recipient = recipient.String
	}

	return &e, nil
}
