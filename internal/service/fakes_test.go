package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/coingecko"
	"github.com/positionhq/position-api/internal/platform/evm"
	"github.com/positionhq/position-api/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// newTestDB returns a handle that is never connected. Tests exercising paths
// that open a transaction need a live database and are out of scope here.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", "postgres://localhost:5432/positions_test?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addrKey(chainID int64, address string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(address))
}

// fakeTokenStore is an in-memory TokenStore.
type fakeTokenStore struct {
	byID        map[uuid.UUID]*domain.Token
	byAddr      map[string]*domain.Token
	createCalls int
}

var _ store.TokenStore = (*fakeTokenStore)(nil)

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		byID:   make(map[uuid.UUID]*domain.Token),
		byAddr: make(map[string]*domain.Token),
	}
}

func (s *fakeTokenStore) add(token *domain.Token) {
	s.byID[token.ID] = token
	s.byAddr[addrKey(token.ChainID, token.Address)] = token
}

func (s *fakeTokenStore) Create(ctx context.Context, token *domain.Token) (*domain.Token, error) {
	s.createCalls++
	if existing, ok := s.byAddr[addrKey(token.ChainID, token.Address)]; ok {
		return existing, nil
	}
	s.add(token)
	return token, nil
}

func (s *fakeTokenStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Token, error) {
	if token, ok := s.byID[id]; ok {
		return token, nil
	}
	return nil, store.ErrTokenNotFound
}

func (s *fakeTokenStore) GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Token, error) {
	if token, ok := s.byAddr[addrKey(chainID, address)]; ok {
		return token, nil
	}
	return nil, store.ErrTokenNotFound
}

func (s *fakeTokenStore) Search(ctx context.Context, filter store.TokenSearch) ([]domain.Token, error) {
	var out []domain.Token
	for _, token := range s.byAddr {
		if filter.ChainID != 0 && token.ChainID != filter.ChainID {
			continue
		}
		if filter.Symbol != "" && !strings.HasPrefix(strings.ToLower(token.Symbol), strings.ToLower(filter.Symbol)) {
			continue
		}
		if filter.Address != "" && token.Address != strings.ToLower(filter.Address) {
			continue
		}
		out = append(out, *token)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// fakePoolStore is an in-memory PoolStore.
type fakePoolStore struct {
	byID   map[uuid.UUID]*domain.Pool
	byAddr map[string]*domain.Pool
}

var _ store.PoolStore = (*fakePoolStore)(nil)

func newFakePoolStore() *fakePoolStore {
	return &fakePoolStore{
		byID:   make(map[uuid.UUID]*domain.Pool),
		byAddr: make(map[string]*domain.Pool),
	}
}

func (s *fakePoolStore) add(pool *domain.Pool) {
	s.byID[pool.ID] = pool
	s.byAddr[addrKey(pool.ChainID, pool.Address)] = pool
}

func (s *fakePoolStore) Create(ctx context.Context, pool *domain.Pool) (*domain.Pool, error) {
	if existing, ok := s.byAddr[addrKey(pool.ChainID, pool.Address)]; ok {
		return existing, nil
	}
	s.add(pool)
	return pool, nil
}

func (s *fakePoolStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	if pool, ok := s.byID[id]; ok {
		return pool, nil
	}
	return nil, store.ErrPoolNotFound
}

func (s *fakePoolStore) GetByAddress(ctx context.Context, chainID int64, address string) (*domain.Pool, error) {
	if pool, ok := s.byAddr[addrKey(chainID, address)]; ok {
		return pool, nil
	}
	return nil, store.ErrPoolNotFound
}

// fakePositionStore is an in-memory PositionStore. WithTx returns the store
// itself; the fakes have no transaction semantics.
type fakePositionStore struct {
	positions map[uuid.UUID]*domain.Position
	events    map[uuid.UUID][]domain.LedgerEvent
}

var _ store.PositionStore = (*fakePositionStore)(nil)

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{
		positions: make(map[uuid.UUID]*domain.Position),
		events:    make(map[uuid.UUID][]domain.LedgerEvent),
	}
}

func (s *fakePositionStore) Create(ctx context.Context, position *domain.Position) error {
	for _, existing := range s.positions {
		if existing.UserID == position.UserID &&
			existing.Protocol == position.Protocol &&
			existing.ChainID == position.ChainID &&
			existing.NFTID == position.NFTID {
			return store.ErrDuplicate
		}
	}
	s.positions[position.ID] = position
	return nil
}

func (s *fakePositionStore) GetByNFT(ctx context.Context, userID uuid.UUID, protocol domain.Protocol, chainID int64, nftID string) (*domain.Position, error) {
	for _, position := range s.positions {
		if position.UserID == userID &&
			position.Protocol == protocol &&
			position.ChainID == chainID &&
			position.NFTID == nftID {
			return position, nil
		}
	}
	return nil, store.ErrPositionNotFound
}

func (s *fakePositionStore) List(ctx context.Context, filter store.PositionFilter) ([]domain.Position, int, error) {
	var matched []domain.Position
	for _, position := range s.positions {
		if position.UserID != filter.UserID {
			continue
		}
		if len(filter.Protocols) > 0 && !slices.Contains(filter.Protocols, position.Protocol) {
			continue
		}
		if filter.ChainID != 0 && position.ChainID != filter.ChainID {
			continue
		}
		switch filter.Status {
		case domain.PositionStatusActive:
			if !position.IsActive {
				continue
			}
		case domain.PositionStatusClosed:
			if position.IsActive {
				continue
			}
		}
		matched = append(matched, *position)
	}

	less := func(a, b domain.Position) bool {
		switch filter.SortBy {
		case "openedAt":
			return a.OpenedAt.Before(b.OpenedAt)
		case "liquidity":
			return a.Liquidity.Cmp(b.Liquidity) < 0
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if filter.SortDesc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	if filter.Offset >= total {
		return []domain.Position{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakePositionStore) Update(ctx context.Context, position *domain.Position) error {
	if _, ok := s.positions[position.ID]; !ok {
		return store.ErrPositionNotFound
	}
	s.positions[position.ID] = position
	return nil
}

func (s *fakePositionStore) Delete(ctx context.Context, userID, positionID uuid.UUID) error {
	position, ok := s.positions[positionID]
	if !ok || position.UserID != userID {
		return store.ErrPositionNotFound
	}
	delete(s.positions, positionID)
	delete(s.events, positionID)
	return nil
}

func (s *fakePositionStore) AppendEvent(ctx context.Context, event *domain.LedgerEvent) error {
	for _, existing := range s.events[event.PositionID] {
		if existing.TransactionHash == event.TransactionHash && existing.LogIndex == event.LogIndex {
			return store.ErrLedgerEventExists
		}
	}
	s.events[event.PositionID] = append(s.events[event.PositionID], *event)
	return nil
}

func (s *fakePositionStore) ListEvents(ctx context.Context, positionID uuid.UUID) ([]domain.LedgerEvent, error) {
	return s.events[positionID], nil
}

func (s *fakePositionStore) LastEvent(ctx context.Context, positionID uuid.UUID) (*domain.LedgerEvent, error) {
	events := s.events[positionID]
	if len(events) == 0 {
		return nil, store.ErrNotFound
	}
	tail := events[len(events)-1]
	return &tail, nil
}

func (s *fakePositionStore) WithTx(tx *sql.Tx) store.PositionStore {
	return s
}

// fakeChainReader serves canned contract reads.
type fakeChainReader struct {
	chains     map[int64]bool
	tokens     map[string]*evm.ERC20Metadata
	pools      map[string]*evm.PoolImmutables
	erc20Calls int
}

func newFakeChainReader(chainIDs ...int64) *fakeChainReader {
	chains := make(map[int64]bool)
	for _, id := range chainIDs {
		chains[id] = true
	}
	return &fakeChainReader{
		chains: chains,
		tokens: make(map[string]*evm.ERC20Metadata),
		pools:  make(map[string]*evm.PoolImmutables),
	}
}

func (c *fakeChainReader) Supports(chainID int64) bool {
	return c.chains[chainID]
}

func (c *fakeChainReader) ERC20Metadata(ctx context.Context, chainID int64, address string) (*evm.ERC20Metadata, error) {
	c.erc20Calls++
	if meta, ok := c.tokens[addrKey(chainID, address)]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("execution reverted")
}

func (c *fakeChainReader) PoolImmutables(ctx context.Context, chainID int64, address string) (*evm.PoolImmutables, error) {
	if immutables, ok := c.pools[addrKey(chainID, address)]; ok {
		return immutables, nil
	}
	return nil, fmt.Errorf("execution reverted")
}

// fakeEnricher serves canned CoinGecko metadata and prices.
type fakeEnricher struct {
	metadata map[string]*coingecko.TokenMetadata
	prices   map[string]decimal.Decimal
	metaErr  error
	priceErr error
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{
		metadata: make(map[string]*coingecko.TokenMetadata),
		prices:   make(map[string]decimal.Decimal),
	}
}

func (e *fakeEnricher) TokenMetadata(ctx context.Context, chainID int64, address string) (*coingecko.TokenMetadata, error) {
	if e.metaErr != nil {
		return nil, e.metaErr
	}
	if meta, ok := e.metadata[addrKey(chainID, address)]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("coin not found")
}

func (e *fakeEnricher) SimplePriceUSD(ctx context.Context, coingeckoID string) (decimal.Decimal, error) {
	if e.priceErr != nil {
		return decimal.Zero, e.priceErr
	}
	if price, ok := e.prices[coingeckoID]; ok {
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("no price for %s", coingeckoID)
}

// fakeMetricsSource serves canned pool metrics.
type fakeMetricsSource struct {
	metrics map[string]*domain.PoolMetrics
	err     error
}

func (m *fakeMetricsSource) PoolMetrics(ctx context.Context, chainID int64, poolAddress string) (*domain.PoolMetrics, error) {
	if m.err != nil {
		return nil, m.err
	}
	if metrics, ok := m.metrics[addrKey(chainID, poolAddress)]; ok {
		return metrics, nil
	}
	return nil, fmt.Errorf("pool not indexed")
}
