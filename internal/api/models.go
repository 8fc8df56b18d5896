package api

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/service"
	"github.com/shopspring/decimal"
)

// Request DTOs. Validation runs through the shared validator; the custom
// eth_addr and tx_hash tags cover address-shaped fields.

// LoginRequest carries a SIWE message and its signature.
type LoginRequest struct {
	Message   string `json:"message"   validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// LinkWalletRequest binds an additional wallet to the session user.
type LinkWalletRequest struct {
	Message   string `json:"message"   validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// CreateAPIKeyRequest names a new API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateTokenRequest identifies an ERC-20 contract to discover.
type CreateTokenRequest struct {
	ChainID int64  `json:"chainId" validate:"required,gt=0"`
	Address string `json:"address" validate:"required,eth_addr"`
}

// LedgerEventRequest is one on-chain event in a position create/patch body.
// Wide integers arrive as decimal strings. The conditional-field rules
// (liquidity for increase/decrease, recipient for collect) are enforced by
// the domain validation after conversion.
type LedgerEventRequest struct {
	EventType        string    `json:"eventType"        validate:"required,oneof=INCREASE_LIQUIDITY DECREASE_LIQUIDITY COLLECT"`
	Timestamp        time.Time `json:"timestamp"        validate:"required"`
	BlockNumber      uint64    `json:"blockNumber"      validate:"required"`
	TransactionIndex uint32    `json:"transactionIndex"`
	LogIndex         uint32    `json:"logIndex"`
	TransactionHash  string    `json:"transactionHash"  validate:"required,tx_hash"`
	Liquidity        *string   `json:"liquidity,omitempty"`
	Amount0          string    `json:"amount0"          validate:"required"`
	Amount1          string    `json:"amount1"          validate:"required"`
	Recipient        *string   `json:"recipient,omitempty"`
}

// CreatePositionRequest carries the position parameters and its opening
// event for a PUT-style create.
type CreatePositionRequest struct {
	PoolAddress string              `json:"poolAddress" validate:"required,eth_addr"`
	TickLower   int32               `json:"tickLower"`
	TickUpper   int32               `json:"tickUpper"`
	Event       *LedgerEventRequest `json:"event" validate:"required"`
}

// PatchPositionRequest appends ledger events to a position.
type PatchPositionRequest struct {
	Events []LedgerEventRequest `json:"events" validate:"required,min=1,dive"`
}

// ToDomain converts the request event into a domain LedgerEvent, parsing
// its wide-integer strings. Parse failures surface as field violations.
func (r *LedgerEventRequest) ToDomain() (*domain.LedgerEvent, error) {
	amount0, err := bigFromString(r.Amount0, "amount0")
	if err != nil {
		return nil, err
	}
	amount1, err := bigFromString(r.Amount1, "amount1")
	if err != nil {
		return nil, err
	}

	var liquidity *big.Int
	if r.Liquidity != nil {
		liquidity, err = bigFromString(*r.Liquidity, "liquidity")
		if err != nil {
			return nil, err
		}
	}

	var recipient string
	if r.Recipient != nil {
		recipient = *r.Recipient
	}

	return &domain.LedgerEvent{
		Type:             domain.EventType(r.EventType),
		BlockNumber:      r.BlockNumber,
		TransactionIndex: r.TransactionIndex,
		LogIndex:         r.LogIndex,
		TransactionHash:  r.TransactionHash,
		EventAt:          r.Timestamp.UTC(),
		Liquidity:        liquidity,
		Amount0:          amount0,
		Amount1:          amount1,
		Recipient:        recipient,
	}, nil
}

// bigFromString parses a non-negative decimal string into a big.Int.
func bigFromString(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &shared.RequestError{
			Message: "request validation failed",
			Violations: []shared.FieldViolation{
				{Field: field, Message: "must be a decimal integer string"},
			},
		}
	}
	return v, nil
}

// Response DTOs. Every wide integer is rendered as a decimal string and
// every timestamp as RFC 3339 UTC; optional fields are pointers so absence
// stays absent.

// TokenResponse is the wire shape of a token.
type TokenResponse struct {
	ID          uuid.UUID `json:"id"`
	ChainID     int64     `json:"chainId"`
	Address     string    `json:"address"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Decimals    int       `json:"decimals"`
	CoingeckoID string    `json:"coingeckoId,omitempty"`
	LogoURI     string    `json:"logoUri,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toTokenResponse(t *domain.Token) TokenResponse {
	return TokenResponse{
		ID:          t.ID,
		ChainID:     t.ChainID,
		Address:     t.Address,
		Symbol:      t.Symbol,
		Name:        t.Name,
		Decimals:    t.Decimals,
		CoingeckoID: t.CoingeckoID,
		LogoURI:     t.LogoURI,
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

// PoolMetricsResponse carries USD metrics as decimal strings.
type PoolMetricsResponse struct {
	TVLUSD       decimal.Decimal `json:"tvlUsd"`
	VolumeUSD24h decimal.Decimal `json:"volumeUsd24h"`
	FeesUSD24h   decimal.Decimal `json:"feesUsd24h"`
}

// PoolResponse is the wire shape of a pool. Metrics are present only when
// enrichment was requested and available.
type PoolResponse struct {
	ID          uuid.UUID            `json:"id"`
	ChainID     int64                `json:"chainId"`
	Address     string               `json:"address"`
	Protocol    domain.Protocol      `json:"protocol"`
	Token0      TokenResponse        `json:"token0"`
	Token1      TokenResponse        `json:"token1"`
	FeeTier     int                  `json:"feeTier"`
	TickSpacing int                  `json:"tickSpacing"`
	Metrics     *PoolMetricsResponse `json:"metrics,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func toPoolResponse(p *domain.Pool, metrics *domain.PoolMetrics) PoolResponse {
	resp := PoolResponse{
		ID:          p.ID,
		ChainID:     p.ChainID,
		Address:     p.Address,
		Protocol:    p.Protocol,
		FeeTier:     p.FeeTier,
		TickSpacing: p.TickSpacing,
		CreatedAt:   p.CreatedAt.UTC(),
	}
	if p.Token0 != nil {
		resp.Token0 = toTokenResponse(p.Token0)
	}
	if p.Token1 != nil {
		resp.Token1 = toTokenResponse(p.Token1)
	}
	if metrics != nil {
		resp.Metrics = &PoolMetricsResponse{
			TVLUSD:       metrics.TVLUSD,
			VolumeUSD24h: metrics.VolumeUSD24h,
			FeesUSD24h:   metrics.FeesUSD24h,
		}
	}
	return resp
}

// PositionResponse is the wire shape of a position. Liquidity is a decimal
// string; values up to 2^256-1 round-trip without precision loss.
type PositionResponse struct {
	ID        uuid.UUID       `json:"id"`
	Protocol  domain.Protocol `json:"protocol"`
	ChainID   int64           `json:"chainId"`
	NFTID     string          `json:"nftId"`
	TickLower int32           `json:"tickLower"`
	TickUpper int32           `json:"tickUpper"`
	Liquidity string          `json:"liquidity"`
	IsActive  bool            `json:"isActive"`
	Pool      *PoolResponse   `json:"pool,omitempty"`
	OpenedAt  time.Time       `json:"openedAt"`
	ClosedAt  *time.Time      `json:"closedAt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toPositionResponse(p *domain.Position) PositionResponse {
	resp := PositionResponse{
		ID:        p.ID,
		Protocol:  p.Protocol,
		ChainID:   p.ChainID,
		NFTID:     p.NFTID,
		TickLower: p.TickLower,
		TickUpper: p.TickUpper,
		Liquidity: bigString(p.Liquidity),
		IsActive:  p.IsActive,
		OpenedAt:  p.OpenedAt.UTC(),
		ClosedAt:  utcPtr(p.ClosedAt),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if p.Pool != nil {
		pool := toPoolResponse(p.Pool, nil)
		resp.Pool = &pool
	}
	return resp
}

func toPositionResponses(positions []domain.Position) []PositionResponse {
	out := make([]PositionResponse, 0, len(positions))
	for i := range positions {
		out = append(out, toPositionResponse(&positions[i]))
	}
	return out
}

// LedgerEventResponse is the wire shape of one ledger entry.
type LedgerEventResponse struct {
	ID               uuid.UUID `json:"id"`
	EventType        string    `json:"eventType"`
	BlockNumber      uint64    `json:"blockNumber"`
	TransactionIndex uint32    `json:"transactionIndex"`
	LogIndex         uint32    `json:"logIndex"`
	TransactionHash  string    `json:"transactionHash"`
	Timestamp        time.Time `json:"timestamp"`
	Liquidity        *string   `json:"liquidity,omitempty"`
	Amount0          string    `json:"amount0"`
	Amount1          string    `json:"amount1"`
	Recipient        string    `json:"recipient,omitempty"`
}

func toLedgerEventResponse(e *domain.LedgerEvent) LedgerEventResponse {
	resp := LedgerEventResponse{
		ID:               e.ID,
		EventType:        string(e.Type),
		BlockNumber:      e.BlockNumber,
		TransactionIndex: e.TransactionIndex,
		LogIndex:         e.LogIndex,
		TransactionHash:  e.TransactionHash,
		Timestamp:        e.EventAt.UTC(),
		Amount0:          bigString(e.Amount0),
		Amount1:          bigString(e.Amount1),
		Recipient:        e.Recipient,
	}
	if e.Liquidity != nil {
		liquidity := e.Liquidity.String()
		resp.Liquidity = &liquidity
	}
	return resp
}

func toLedgerEventResponses(events []domain.LedgerEvent) []LedgerEventResponse {
	out := make([]LedgerEventResponse, 0, len(events))
	for i := range events {
		out = append(out, toLedgerEventResponse(&events[i]))
	}
	return out
}

// APRResponse is the derived return profile. All USD and percentage values
// are decimal strings.
type APRResponse struct {
	CostBasisUSD decimal.Decimal `json:"costBasisUsd"`
	FeesUSD      decimal.Decimal `json:"feesUsd"`
	PeriodDays   decimal.Decimal `json:"periodDays"`
	APRPercent   decimal.Decimal `json:"aprPercent"`
	EventCount   int             `json:"eventCount"`
}

func toAPRResponse(apr *service.PositionAPR) APRResponse {
	return APRResponse{
		CostBasisUSD: apr.CostBasisUSD,
		FeesUSD:      apr.FeesUSD,
		PeriodDays:   apr.PeriodDays,
		APRPercent:   apr.APRPercent,
		EventCount:   apr.EventCount,
	}
}

// APIKeyResponse is the wire shape of a key record. The secret half is
// never present.
type APIKeyResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toAPIKeyResponse(k *domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		LastUsedAt: utcPtr(k.LastUsedAt),
		CreatedAt:  k.CreatedAt.UTC(),
	}
}

func toAPIKeyResponses(keys []domain.APIKey) []APIKeyResponse {
	out := make([]APIKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toAPIKeyResponse(&keys[i]))
	}
	return out
}

// CreatedAPIKeyResponse carries the one-time plaintext alongside the record.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// WalletResponse is the wire shape of a wallet binding.
type WalletResponse struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	ChainID   int64     `json:"chainId"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}

func toWalletResponse(w *domain.WalletAddress) WalletResponse {
	return WalletResponse{
		ID:        w.ID,
		Address:   w.Address,
		ChainID:   w.ChainID,
		IsPrimary: w.IsPrimary,
		CreatedAt: w.CreatedAt.UTC(),
	}
}

// UserResponse is the wire shape of a user profile.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name,omitempty"`
	Email string    `json:"email,omitempty"`
	Image string    `json:"image,omitempty"`
}

// LoginResponse is the outcome of a SIWE sign-in.
type LoginResponse struct {
	Token   string         `json:"token"`
	User    UserResponse   `json:"user"`
	Wallet  WalletResponse `json:"wallet"`
	NewUser bool           `json:"newUser"`
}

// bigString renders a wide integer as a decimal string; nil renders as "0".
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// utcPtr normalizes an optional timestamp to UTC, preserving absence.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
