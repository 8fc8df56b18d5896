// Package coingecko implements a client for CoinGecko token metadata and
// price lookups. Token discovery uses it for best-effort enrichment; APR
// derivation uses it as the USD price source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// platformIDs maps EVM chain IDs to CoinGecko asset-platform slugs.
var platformIDs = map[int64]string{
	1:     "ethereum",
	10:    "optimistic-ethereum",
	137:   "polygon-pos",
	8453:  "base",
	42161: "arbitrum-one",
}

// Client calls the CoinGecko REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a CoinGecko client. An empty apiKey uses the public,
// rate-limited tier.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With(slog.String("component", "coingecko_client")),
	}
}

// TokenMetadata is the enrichment CoinGecko provides for a contract address.
type TokenMetadata struct {
	CoingeckoID string
	LogoURI     string
}

type contractResponse struct {
	ID    string `json:"id"`
	Image struct {
		Small string `json:"small"`
	} `json:"image"`
}

// TokenMetadata looks up a token contract on CoinGecko. Returns an error
// when the chain has no CoinGecko platform or the token is unknown there.
func (c *Client) TokenMetadata(ctx context.Context, chainID int64, address string) (*TokenMetadata, error) {
	platform, ok := platformIDs[chainID]
	if !ok {
		return nil, fmt.Errorf("no CoinGecko platform for chain %d", chainID)
	}

	endpoint := fmt.Sprintf("%s/coins/%s/contract/%s", c.baseURL, platform, url.PathEscape(address))
	var parsed contractResponse
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	return &TokenMetadata{
		CoingeckoID: parsed.ID,
		LogoURI:     parsed.Image.Small,
	}, nil
}

// SimplePriceUSD returns the current USD price for a CoinGecko asset ID.
func (c *Client) SimplePriceUSD(ctx context.Context, coingeckoID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&precision=full",
		c.baseURL, url.QueryEscape(coingeckoID))

	var parsed map[string]map[string]json.Number
	if err := c.get(ctx, endpoint, &parsed); err != nil {
		return decimal.Zero, err
	}

	entry, ok := parsed[coingeckoID]
	if !ok {
		return decimal.Zero, fmt.Errorf("CoinGecko has no price for %q", coingeckoID)
	}
	raw, ok := entry["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("CoinGecko has no USD quote for %q", coingeckoID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid CoinGecko price for %q: %w", coingeckoID, err)
	}
	return price, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build CoinGecko request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("CoinGecko request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close CoinGecko response body",
				slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("CoinGecko has no entry for this asset")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CoinGecko returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode CoinGecko response: %w", err)
	}
	return nil
}
