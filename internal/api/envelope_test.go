package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatedHasMore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		items       int
		total       int
		limit       int
		offset      int
		wantHasMore bool
	}{
		{name: "first page of many", items: 20, total: 50, limit: 20, offset: 0, wantHasMore: true},
		{name: "middle page", items: 20, total: 50, limit: 20, offset: 20, wantHasMore: true},
		{name: "last full page", items: 10, total: 50, limit: 20, offset: 40, wantHasMore: false},
		{name: "exact boundary", items: 20, total: 40, limit: 20, offset: 20, wantHasMore: false},
		{name: "single page", items: 5, total: 5, limit: 20, offset: 0, wantHasMore: false},
		{name: "empty result", items: 0, total: 0, limit: 20, offset: 0, wantHasMore: false},
		{name: "offset beyond total", items: 0, total: 10, limit: 20, offset: 100, wantHasMore: false},
		// offset+limit < total but the page came back empty: hasMore must
		// still be false so clients never chase an empty window.
		{name: "empty page with remaining total", items: 0, total: 100, limit: 20, offset: 0, wantHasMore: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			items := make([]string, tc.items)
			env := Paginated(items, tc.total, tc.limit, tc.offset)

			assert.True(t, env.Success)
			assert.Equal(t, tc.total, env.Pagination.Total)
			assert.Equal(t, tc.limit, env.Pagination.Limit)
			assert.Equal(t, tc.offset, env.Pagination.Offset)
			assert.Equal(t, tc.wantHasMore, env.Pagination.HasMore)
		})
	}
}

func TestPaginatedNilItemsSerializeAsEmptyArray(t *testing.T) {
	t.Parallel()

	env := Paginated[string](nil, 0, 20, 0)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)
	assert.NotContains(t, string(raw), `"data":null`)
}

func TestSuccessEnvelopeMeta(t *testing.T) {
	t.Parallel()

	env := Success(map[string]string{"status": "healthy"})

	require.True(t, env.Success)
	require.Contains(t, env.Meta, "timestamp")

	stamp, ok := env.Meta["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err, "meta timestamp must be RFC 3339")
}

func TestSuccessEnvelopeMergesExtraMeta(t *testing.T) {
	t.Parallel()

	env := Success("ok", Meta{"source": "database"})

	assert.Equal(t, "database", env.Meta["source"])
	assert.Contains(t, env.Meta, "timestamp")
}

func TestErrorEnvelopeShape(t *testing.T) {
	t.Parallel()

	env := Error(CodeNotFound, "position not found", nil)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.False(t, decoded.Success)
	assert.Equal(t, "NOT_FOUND", decoded.Error.Code)
	assert.Equal(t, "position not found", decoded.Error.Message)
	assert.NotContains(t, string(raw), `"details"`)
}
