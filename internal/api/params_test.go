package api

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireViolation asserts err is a RequestError naming the given field.
func requireViolation(t *testing.T, err error, field string) {
	t.Helper()

	var reqErr *shared.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Len(t, reqErr.Violations, 1)
	assert.Equal(t, field, reqErr.Violations[0].Field)
}

func TestParsePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantField  string
	}{
		{name: "defaults", query: "", wantLimit: 20, wantOffset: 0},
		{name: "explicit values", query: "limit=50&offset=10", wantLimit: 50, wantOffset: 10},
		{name: "limit at max", query: "limit=100", wantLimit: 100},
		{name: "limit zero", query: "limit=0", wantField: "limit"},
		{name: "limit above max", query: "limit=101", wantField: "limit"},
		{name: "limit not a number", query: "limit=abc", wantField: "limit"},
		{name: "negative offset", query: "offset=-1", wantField: "offset"},
		{name: "offset not a number", query: "offset=x", wantField: "offset"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/v1/positions?"+tc.query, nil)
			limit, offset, err := parsePage(r)

			if tc.wantField != "" {
				requireViolation(t, err, tc.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLimit, limit)
			assert.Equal(t, tc.wantOffset, offset)
		})
	}
}

func TestParseChainIDQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		required bool
		want     int64
		wantErr  bool
	}{
		{name: "valid", query: "chainId=1", want: 1},
		{name: "missing optional", query: "", required: false, want: 0},
		{name: "missing required", query: "", required: true, wantErr: true},
		{name: "non-numeric", query: "chainId=mainnet", wantErr: true},
		{name: "zero", query: "chainId=0", wantErr: true},
		{name: "negative", query: "chainId=-5", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/v1/pools/x?"+tc.query, nil)
			chainID, err := parseChainIDQuery(r, tc.required)

			if tc.wantErr {
				requireViolation(t, err, "chainId")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, chainID)
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		want    domain.PositionStatus
		wantErr bool
	}{
		{name: "default is all", query: "", want: domain.PositionStatusAll},
		{name: "active", query: "status=active", want: domain.PositionStatusActive},
		{name: "closed", query: "status=closed", want: domain.PositionStatusClosed},
		{name: "unknown value", query: "status=open", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/v1/positions?"+tc.query, nil)
			status, err := parseStatus(r)

			if tc.wantErr {
				requireViolation(t, err, "status")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestParseSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		wantBy   string
		wantDesc bool
		wantErr  bool
	}{
		{name: "defaults to createdAt desc", query: "", wantBy: "createdAt", wantDesc: true},
		{name: "liquidity ascending", query: "sortBy=liquidity&sortDirection=asc", wantBy: "liquidity", wantDesc: false},
		{name: "openedAt descending", query: "sortBy=openedAt&sortDirection=desc", wantBy: "openedAt", wantDesc: true},
		{name: "unknown sort field", query: "sortBy=feesEarned", wantErr: true},
		{name: "unknown direction", query: "sortDirection=up", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/v1/positions?"+tc.query, nil)
			sortBy, desc, err := parseSort(r)

			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantBy, sortBy)
			assert.Equal(t, tc.wantDesc, desc)
		})
	}
}

func TestParseProtocols(t *testing.T) {
	t.Parallel()

	t.Run("absent means no filter", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/v1/positions", nil)
		protocols, err := parseProtocols(r)
		require.NoError(t, err)
		assert.Nil(t, protocols)
	})

	t.Run("comma-separated list", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/v1/positions?protocols=uniswapv3,orca", nil)
		protocols, err := parseProtocols(r)
		require.NoError(t, err)
		assert.Equal(t, []domain.Protocol{domain.ProtocolUniswapV3, domain.ProtocolOrca}, protocols)
	})

	t.Run("unknown protocol rejected", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("GET", "/v1/positions?protocols=uniswapv3,sushiswap", nil)
		_, err := parseProtocols(r)
		requireViolation(t, err, "protocols")
	})
}

func TestParseBoolQuery(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/v1/pools/x?enrichMetrics=true", nil)
	value, err := parseBoolQuery(r, "enrichMetrics")
	require.NoError(t, err)
	assert.True(t, value)

	r = httptest.NewRequest("GET", "/v1/pools/x", nil)
	value, err = parseBoolQuery(r, "enrichMetrics")
	require.NoError(t, err)
	assert.False(t, value)

	r = httptest.NewRequest("GET", "/v1/pools/x?enrichMetrics=yes-please", nil)
	_, err = parseBoolQuery(r, "enrichMetrics")
	var reqErr *shared.RequestError
	assert.True(t, errors.As(err, &reqErr))
}
