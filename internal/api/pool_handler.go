package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/service"
)

// PoolHandler serves pool lookups.
type PoolHandler struct {
	pools  *service.PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(pools *service.PoolService, log *slog.Logger) *PoolHandler {
	if pools == nil {
		panic("pool service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PoolHandler{
		pools:  pools,
		logger: log.With(slog.String("component", "pool_handler")),
	}
}

// Get handles GET /v1/pools/uniswapv3/{address}?chainId=&enrichMetrics=.
// Metrics enrichment is best-effort: when the subgraph is unavailable the
// pool is returned without the metrics field.
func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainIDQuery(r, true)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	enrich, err := parseBoolQuery(r, "enrichMetrics")
	if err != nil {
		RespondError(w, r, err)
		return
	}

	address := chi.URLParam(r, "address")

	pool, metrics, err := h.pools.GetPool(r.Context(), chainID, address, enrich)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toPoolResponse(pool, metrics)))
}
