package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/store"
)

// MaxSearchResults caps token search result sets.
const MaxSearchResults = 10

// TokenService discovers and searches ERC-20 tokens.
type TokenService struct {
	tokens   store.TokenStore
	chain    ChainReader
	enricher TokenEnricher
	logger   *slog.Logger
}

// NewTokenService creates a TokenService.
func NewTokenService(tokens store.TokenStore, chain ChainReader, enricher TokenEnricher, log *slog.Logger) *TokenService {
	if tokens == nil {
		panic("tokens store cannot be nil")
	}
	if chain == nil {
		panic("chain reader cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &TokenService{
		tokens:   tokens,
		chain:    chain,
		enricher: enricher,
		logger:   log.With(slog.String("component", "token_service")),
	}
}

// DiscoverERC20 finds or creates a token record for the contract at the
// given address. Discovery is idempotent: a known (chain, address) pair
// returns the existing row unchanged. New tokens are read from chain and
// enriched with CoinGecko metadata on a best-effort basis.
//
// Returns ErrChainNotSupported when the chain has no configured RPC
// endpoint and ErrNotERC20 when the contract does not answer the ERC-20
// metadata calls.
func (s *TokenService) DiscoverERC20(ctx context.Context, chainID int64, address string) (*domain.Token, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.IsValidAddress(address) {
		return nil, domain.NewValidationError("address", "must be a 0x-prefixed 40-hex-character string", domain.ErrInvalidAddress)
	}

	existing, err := s.tokens.GetByAddress(ctx, chainID, address)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if !s.chain.Supports(chainID) {
		return nil, fmt.Errorf("%w: chain %d", ErrChainNotSupported, chainID)
	}

	meta, err := s.chain.ERC20Metadata(ctx, chainID, address)
	if err != nil {
		log.Debug("contract failed ERC-20 metadata reads",
			slog.Int64("chain_id", chainID),
			slog.String("address", address),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrNotERC20, err)
	}

	token, err := domain.NewToken(chainID, address, meta.Symbol, meta.Name, meta.Decimals)
	if err != nil {
		return nil, err
	}

	// Enrichment is best-effort: a token CoinGecko has never heard of is
	// still a valid token.
	if s.enricher != nil {
		enrichment, err := s.enricher.TokenMetadata(ctx, chainID, address)
		if err != nil {
			log.Debug("token enrichment unavailable",
				slog.Int64("chain_id", chainID),
				slog.String("address", address),
				slog.String("error", err.Error()))
		} else {
			token.CoingeckoID = enrichment.CoingeckoID
			token.LogoURI = enrichment.LogoURI
		}
	}

	created, err := s.tokens.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return created, nil
}

// Search returns tokens on a chain matching the given refinements. At least
// one of symbol, name or address must be set. Results are capped at
// MaxSearchResults.
func (s *TokenService) Search(ctx context.Context, filter store.TokenSearch) ([]domain.Token, error) {
	if filter.Symbol == "" && filter.Name == "" && filter.Address == "" {
		return nil, domain.NewValidationError("query", "at least one of symbol, name or address is required", domain.ErrValidation)
	}
	if filter.Limit <= 0 || filter.Limit > MaxSearchResults {
		filter.Limit = MaxSearchResults
	}

	tokens, err := s.tokens.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search tokens: %w", err)
	}
	return tokens, nil
}
