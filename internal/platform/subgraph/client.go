// Package subgraph implements a best-effort client for Uniswap V3 subgraph
// pool metrics. Callers must treat every failure as "metrics unavailable":
// the primary pool lookup succeeds without them.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/positionhq/position-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Client queries per-chain Uniswap V3 subgraphs.
type Client struct {
	urls   map[int64]string // chain ID -> subgraph endpoint
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a subgraph client for the configured chain endpoints.
// The urls map keys are chain IDs rendered as decimal strings.
func NewClient(urls map[string]string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	byChain := make(map[int64]string, len(urls))
	for key, url := range urls {
		chainID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn("ignoring subgraph URL with non-numeric chain key",
				slog.String("key", key))
			continue
		}
		byChain[chainID] = url
	}

	return &Client{
		urls:   byChain,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(slog.String("component", "subgraph_client")),
	}
}

// poolMetricsQuery fetches current TVL plus the latest day's volume and fees.
const poolMetricsQuery = `query ($pool: ID!) {
  pool(id: $pool) {
    totalValueLockedUSD
    poolDayData(first: 1, orderBy: date, orderDirection: desc) {
      volumeUSD
      feesUSD
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type poolMetricsResponse struct {
	Data struct {
		Pool *struct {
			TotalValueLockedUSD string `json:"totalValueLockedUSD"`
			PoolDayData         []struct {
				VolumeUSD string `json:"volumeUSD"`
				FeesUSD   string `json:"feesUSD"`
			} `json:"poolDayData"`
		} `json:"pool"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// PoolMetrics returns USD metrics for the pool, or an error when the chain
// has no subgraph endpoint or the query fails. Amounts are parsed with
// decimal arithmetic; nothing passes through float64.
func (c *Client) PoolMetrics(ctx context.Context, chainID int64, poolAddress string) (*domain.PoolMetrics, error) {
	url, ok := c.urls[chainID]
	if !ok {
		return nil, fmt.Errorf("no subgraph configured for chain %d", chainID)
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     poolMetricsQuery,
		Variables: map[string]any{"pool": domain.NormalizeAddress(poolAddress)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode subgraph query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build subgraph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close subgraph response body",
				slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	}

	var parsed poolMetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode subgraph response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("subgraph error: %s", parsed.Errors[0].Message)
	}
	if parsed.Data.Pool == nil {
		return nil, fmt.Errorf("pool %s not indexed on chain %d", poolAddress, chainID)
	}

	metrics := &domain.PoolMetrics{}
	metrics.TVLUSD, err = decimal.NewFromString(parsed.Data.Pool.TotalValueLockedUSD)
	if err != nil {
		return nil, fmt.Errorf("invalid TVL value from subgraph: %w", err)
	}

	if len(parsed.Data.Pool.PoolDayData) > 0 {
		day := parsed.Data.Pool.PoolDayData[0]
		metrics.VolumeUSD24h, err = decimal.NewFromString(day.VolumeUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid volume value from subgraph: %w", err)
		}
		metrics.FeesUSD24h, err = decimal.NewFromString(day.FeesUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid fees value from subgraph: %w", err)
		}
	}

	return metrics, nil
}
