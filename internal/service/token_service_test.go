package service_test

import (
	"context"
	"testing"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/coingecko"
	"github.com/positionhq/position-api/internal/platform/evm"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wethAddress = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
)

func TestDiscoverERC20(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reads a new token from chain", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		chain := newFakeChainReader(1)
		chain.tokens[addrKey(1, usdcAddress)] = &evm.ERC20Metadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6}

		enricher := newFakeEnricher()
		enricher.metadata[addrKey(1, usdcAddress)] = &coingecko.TokenMetadata{CoingeckoID: "usd-coin", LogoURI: "https://cdn/usdc.png"}

		svc := service.NewTokenService(tokens, chain, enricher, nil)

		token, err := svc.DiscoverERC20(ctx, 1, usdcAddress)
		require.NoError(t, err)

		assert.Equal(t, "USDC", token.Symbol)
		assert.Equal(t, "USD Coin", token.Name)
		assert.Equal(t, 6, token.Decimals)
		assert.Equal(t, usdcAddress, token.Address)
		assert.Equal(t, "usd-coin", token.CoingeckoID)
		assert.Equal(t, "https://cdn/usdc.png", token.LogoURI)
	})

	t.Run("is idempotent for a known token", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		chain := newFakeChainReader(1)
		chain.tokens[addrKey(1, usdcAddress)] = &evm.ERC20Metadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6}

		svc := service.NewTokenService(tokens, chain, newFakeEnricher(), nil)

		first, err := svc.DiscoverERC20(ctx, 1, usdcAddress)
		require.NoError(t, err)
		second, err := svc.DiscoverERC20(ctx, 1, usdcAddress)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, chain.erc20Calls, "a known token must not hit the chain again")
	})

	t.Run("address lookup is case-insensitive", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		chain := newFakeChainReader(1)
		chain.tokens[addrKey(1, usdcAddress)] = &evm.ERC20Metadata{Name: "USD Coin", Symbol: "USDC", Decimals: 6}

		svc := service.NewTokenService(tokens, chain, nil, nil)

		first, err := svc.DiscoverERC20(ctx, 1, usdcAddress)
		require.NoError(t, err)

		// Same address with EIP-55 style casing resolves to the same row.
		second, err := svc.DiscoverERC20(ctx, 1, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("rejects a malformed address", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTokenService(newFakeTokenStore(), newFakeChainReader(1), nil, nil)

		_, err := svc.DiscoverERC20(ctx, 1, "not-an-address")
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	})

	t.Run("rejects an unsupported chain", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTokenService(newFakeTokenStore(), newFakeChainReader(1), nil, nil)

		_, err := svc.DiscoverERC20(ctx, 999, usdcAddress)
		assert.ErrorIs(t, err, service.ErrChainNotSupported)
	})

	t.Run("rejects a contract that fails the metadata reads", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTokenService(newFakeTokenStore(), newFakeChainReader(1), nil, nil)

		_, err := svc.DiscoverERC20(ctx, 1, usdcAddress)
		assert.ErrorIs(t, err, service.ErrNotERC20)
	})

	t.Run("enrichment failure does not block discovery", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		chain := newFakeChainReader(1)
		chain.tokens[addrKey(1, wethAddress)] = &evm.ERC20Metadata{Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18}

		svc := service.NewTokenService(tokens, chain, newFakeEnricher(), nil)

		token, err := svc.DiscoverERC20(ctx, 1, wethAddress)
		require.NoError(t, err)
		assert.Equal(t, "WETH", token.Symbol)
		assert.Empty(t, token.CoingeckoID)
	})
}

func TestTokenSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("requires at least one refinement", func(t *testing.T) {
		t.Parallel()

		svc := service.NewTokenService(newFakeTokenStore(), newFakeChainReader(1), nil, nil)

		_, err := svc.Search(ctx, store.TokenSearch{ChainID: 1})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("caps the limit", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		for i := 0; i < 15; i++ {
			token, err := domain.NewToken(1, randomAddress(i), "USDT", "Tether", 6)
			require.NoError(t, err)
			tokens.add(token)
		}

		svc := service.NewTokenService(tokens, newFakeChainReader(1), nil, nil)

		results, err := svc.Search(ctx, store.TokenSearch{ChainID: 1, Symbol: "USDT", Limit: 500})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), service.MaxSearchResults)
	})

	t.Run("matches symbol prefix", func(t *testing.T) {
		t.Parallel()

		tokens := newFakeTokenStore()
		usdc, err := domain.NewToken(1, usdcAddress, "USDC", "USD Coin", 6)
		require.NoError(t, err)
		tokens.add(usdc)
		weth, err := domain.NewToken(1, wethAddress, "WETH", "Wrapped Ether", 18)
		require.NoError(t, err)
		tokens.add(weth)

		svc := service.NewTokenService(tokens, newFakeChainReader(1), nil, nil)

		results, err := svc.Search(ctx, store.TokenSearch{ChainID: 1, Symbol: "usd"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "USDC", results[0].Symbol)
	})
}

// randomAddress builds a distinct valid address from an index.
func randomAddress(i int) string {
	return "0x00000000000000000000000000000000000000" + string(rune('a'+i%6)) + string(rune('0'+i%10))
}
