package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
	"github.com/shopspring/decimal"
)

// hoursPerYear is the annualization factor for APR derivation.
var hoursPerYear = decimal.NewFromInt(24 * 365)

// PositionService owns the position lifecycle: creation from the first
// on-chain event, ledger appends in blockchain order, listing, deletion,
// and the derived ledger/APR reads.
type PositionService struct {
	db        *sql.DB
	positions store.PositionStore
	pools     store.PoolStore
	poolSvc   *PoolService
	enricher  TokenEnricher
	logger    *slog.Logger
}

// NewPositionService creates a PositionService. The db handle is used to
// run position updates and ledger appends in one transaction.
func NewPositionService(db *sql.DB, positions store.PositionStore, pools store.PoolStore, poolSvc *PoolService, enricher TokenEnricher, log *slog.Logger) *PositionService {
	if db == nil {
		panic("db cannot be nil")
	}
	if positions == nil {
		panic("positions store cannot be nil")
	}
	if pools == nil {
		panic("pools store cannot be nil")
	}
	if poolSvc == nil {
		panic("pool service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PositionService{
		db:        db,
		positions: positions,
		pools:     pools,
		poolSvc:   poolSvc,
		enricher:  enricher,
		logger:    log.With(slog.String("component", "position_service")),
	}
}

// CreatePositionParams carries the position parameters and the opening
// on-chain event for a PUT-style create.
type CreatePositionParams struct {
	PoolAddress string
	TickLower   int32
	TickUpper   int32
	Event       *domain.LedgerEvent
}

// CreateFromEvent creates a position from its first on-chain event. The
// opening event must be an INCREASE_LIQUIDITY; the pool is discovered on
// first sight.
//
// Returns ErrFirstEventNotIncrease for a non-increase opening event and
// ErrPositionExists when the user already tracks (protocol, chain, nftID).
func (s *PositionService) CreateFromEvent(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string, params CreatePositionParams) (*domain.Position, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event := params.Event
	if event == nil {
		return nil, domain.NewValidationError("event", "is required", domain.ErrValidation)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if event.Type != domain.EventIncreaseLiquidity {
		return nil, fmt.Errorf("%w: got %s", ErrFirstEventNotIncrease, event.Type)
	}

	if _, err := s.positions.GetByNFT(ctx, userID, protocol, chainID, nftID); err == nil {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrPositionExists, nftID, chainID)
	} else if !errors.Is(err, store.ErrPositionNotFound) {
		return nil, fmt.Errorf("failed to look up position: %w", err)
	}

	pool, _, err := s.poolSvc.GetPool(ctx, chainID, params.PoolAddress, false)
	if err != nil {
		return nil, err
	}

	position, err := domain.NewPosition(userID, pool.ID, protocol, chainID, nftID, params.TickLower, params.TickUpper, event.EventAt)
	if err != nil {
		return nil, err
	}
	position.Liquidity = event.Liquidity

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txPositions := s.positions.WithTx(tx)

		if err := txPositions.Create(ctx, position); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: %s on chain %d", ErrPositionExists, nftID, chainID)
			}
			return err
		}

		event.ID = uuid.New()
		event.PositionID = position.ID
		event.CreatedAt = time.Now().UTC()
		return txPositions.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	log.Info("position created from opening event",
		slog.String("position_id", position.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int64("chain_id", chainID),
		slog.String("nft_id", nftID))

	position.Pool = pool
	return position, nil
}

// AppendEvents appends ledger events to a position. Every event must sort
// strictly after the current ledger tail (and after its predecessors in the
// batch) by (blockNumber, transactionIndex, logIndex). The position's
// liquidity is re-derived from the applied deltas; a position whose
// liquidity runs to zero is closed.
//
// Returns ErrEventOutOfOrder for ordering violations and
// ErrEventAlreadyRecorded when an event's (transaction hash, log index)
// pair is already in the ledger.
func (s *PositionService) AppendEvents(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string, events []*domain.LedgerEvent) (*domain.Position, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(events) == 0 {
		return nil, domain.NewValidationError("events", "at least one event is required", domain.ErrValidation)
	}
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return nil, err
		}
	}

	position, err := s.getOwned(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txPositions := s.positions.WithTx(tx)

		tail, err := txPositions.LastEvent(ctx, position.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to read ledger tail: %w", err)
		}

		var tailOrdinal domain.EventOrdinal
		haveTail := tail != nil
		if haveTail {
			tailOrdinal = tail.Ordinal()
		}

		liquidity := position.Liquidity
		var lastEventAt time.Time

		for _, event := range events {
			ordinal := event.Ordinal()
			if haveTail && !ordinal.After(tailOrdinal) {
				return fmt.Errorf("%w: (%d, %d, %d) does not sort after (%d, %d, %d)",
					ErrEventOutOfOrder,
					ordinal.BlockNumber, ordinal.TransactionIndex, ordinal.LogIndex,
					tailOrdinal.BlockNumber, tailOrdinal.TransactionIndex, tailOrdinal.LogIndex)
			}
			tailOrdinal = ordinal
			haveTail = true

			switch event.Type {
			case domain.EventIncreaseLiquidity:
				liquidity = new(big.Int).Add(liquidity, event.Liquidity)
			case domain.EventDecreaseLiquidity:
				next := new(big.Int).Sub(liquidity, event.Liquidity)
				if next.Sign() < 0 {
					return domain.NewValidationError("liquidity", "decrease exceeds position liquidity", domain.ErrNegativeAmount)
				}
				liquidity = next
			}

			event.ID = uuid.New()
			event.PositionID = position.ID
			event.CreatedAt = time.Now().UTC()
			if err := txPositions.AppendEvent(ctx, event); err != nil {
				if errors.Is(err, store.ErrLedgerEventExists) {
					return fmt.Errorf("%w: %s log %d", ErrEventAlreadyRecorded, event.TransactionHash, event.LogIndex)
				}
				return err
			}
			lastEventAt = event.EventAt
		}

		position.Liquidity = liquidity
		position.UpdatedAt = time.Now().UTC()
		if liquidity.Sign() == 0 {
			position.IsActive = false
			closedAt := lastEventAt
			position.ClosedAt = &closedAt
		} else {
			position.IsActive = true
			position.ClosedAt = nil
		}

		return txPositions.Update(ctx, position)
	})
	if err != nil {
		return nil, err
	}

	log.Info("ledger events appended",
		slog.String("position_id", position.ID.String()),
		slog.Int("events", len(events)),
		slog.Bool("active", position.IsActive))

	s.attachPool(ctx, position)
	return position, nil
}

// Get returns a user's position with its pool populated.
func (s *PositionService) Get(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*domain.Position, error) {
	position, err := s.getOwned(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		return nil, err
	}
	s.attachPool(ctx, position)
	return position, nil
}

// Delete removes a user's position and its ledger.
func (s *PositionService) Delete(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) error {
	position, err := s.getOwned(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		return err
	}

	if err := s.positions.Delete(ctx, userID, position.ID); err != nil {
		if errors.Is(err, store.ErrPositionNotFound) {
			return fmt.Errorf("%w: %s on chain %d", ErrPositionNotFound, nftID, chainID)
		}
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// List returns the filtered page of a user's positions and the total match
// count. Pools are populated on every returned position.
func (s *PositionService) List(ctx context.Context, filter store.PositionFilter) ([]domain.Position, int, error) {
	positions, total, err := s.positions.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list positions: %w", err)
	}

	// One lookup per distinct pool on the page.
	poolsByID := make(map[uuid.UUID]*domain.Pool)
	for i := range positions {
		pool, ok := poolsByID[positions[i].PoolID]
		if !ok {
			pool, err = s.pools.GetByID(ctx, positions[i].PoolID)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to load pool for position: %w", err)
			}
			poolsByID[positions[i].PoolID] = pool
		}
		positions[i].Pool = pool
	}

	return positions, total, nil
}

// Ledger returns the position's event history in blockchain order.
func (s *PositionService) Ledger(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) ([]domain.LedgerEvent, error) {
	position, err := s.getOwned(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		return nil, err
	}

	events, err := s.positions.ListEvents(ctx, position.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return events, nil
}

// PositionAPR is the derived return profile of a position. All USD values
// use decimal arithmetic end to end.
type PositionAPR struct {
	CostBasisUSD decimal.Decimal
	FeesUSD      decimal.Decimal
	PeriodDays   decimal.Decimal
	APRPercent   decimal.Decimal
	EventCount   int
}

// APR derives the position's fee APR: realized collects priced in USD
// against the USD cost basis of all liquidity added, annualized over the
// holding period. Prices come from the enrichment source at current spot.
//
// Returns ErrEmptyLedger for a position with no events and
// ErrPriceUnavailable when either pool token has no obtainable USD price.
func (s *PositionService) APR(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*PositionAPR, error) {
	position, err := s.getOwned(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		return nil, err
	}

	events, err := s.positions.ListEvents(ctx, position.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s on chain %d", ErrEmptyLedger, nftID, chainID)
	}

	pool, err := s.pools.GetByID(ctx, position.PoolID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}

	price0, err := s.priceUSD(ctx, pool.Token0)
	if err != nil {
		return nil, err
	}
	price1, err := s.priceUSD(ctx, pool.Token1)
	if err != nil {
		return nil, err
	}

	costBasis := decimal.Zero
	fees := decimal.Zero
	for _, event := range events {
		usd := amountUSD(event.Amount0, pool.Token0.Decimals, price0).
			Add(amountUSD(event.Amount1, pool.Token1.Decimals, price1))

		switch event.Type {
		case domain.EventIncreaseLiquidity:
			costBasis = costBasis.Add(usd)
		case domain.EventCollect:
			fees = fees.Add(usd)
		}
	}

	end := time.Now().UTC()
	if position.ClosedAt != nil {
		end = *position.ClosedAt
	}
	periodHours := decimal.NewFromFloat(end.Sub(position.OpenedAt).Hours())
	if periodHours.LessThan(decimal.NewFromInt(1)) {
		periodHours = decimal.NewFromInt(1)
	}

	apr := decimal.Zero
	if costBasis.IsPositive() {
		apr = fees.Div(costBasis).
			Mul(hoursPerYear).Div(periodHours).
			Mul(decimal.NewFromInt(100))
	}

	return &PositionAPR{
		CostBasisUSD: costBasis,
		FeesUSD:      fees,
		PeriodDays:   periodHours.Div(decimal.NewFromInt(24)),
		APRPercent:   apr,
		EventCount:   len(events),
	}, nil
}

// getOwned fetches a position scoped to its owner, translating the store
// sentinel to the service error kind.
func (s *PositionService) getOwned(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*domain.Position, error) {
	position, err := s.positions.GetByNFT(ctx, userID, protocol, chainID, nftID)
	if err != nil {
		if errors.Is(err, store.ErrPositionNotFound) {
			return nil, fmt.Errorf("%w: %s on chain %d", ErrPositionNotFound, nftID, chainID)
		}
		return nil, fmt.Errorf("failed to look up position: %w", err)
	}
	return position, nil
}

// attachPool populates position.Pool, logging instead of failing: the
// position itself is the primary payload.
func (s *PositionService) attachPool(ctx context.Context, position *domain.Position) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pool, err := s.pools.GetByID(ctx, position.PoolID)
	if err != nil {
		log.Warn("failed to load pool for position",
			slog.String("position_id", position.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	position.Pool = pool
}

// priceUSD resolves a token's current USD price through its CoinGecko ID.
func (s *PositionService) priceUSD(ctx context.Context, token *domain.Token) (decimal.Decimal, error) {
	if s.enricher == nil || token.CoingeckoID == "" {
		return decimal.Zero, fmt.Errorf("%w: %s has no price source", ErrPriceUnavailable, token.Symbol)
	}

	price, err := s.enricher.SimplePriceUSD(ctx, token.CoingeckoID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	return price, nil
}

// amountUSD converts a raw on-chain amount to USD at the given price.
func amountUSD(amount *big.Int, decimals int, price decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Mul(price)
}
