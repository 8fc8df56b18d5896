package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/store"
)

// PositionHandler serves the position lifecycle and its derived reads.
type PositionHandler struct {
	positions *service.PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions *service.PositionService, log *slog.Logger) *PositionHandler {
	if positions == nil {
		panic("position service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PositionHandler{
		positions: positions,
		logger:    log.With(slog.String("component", "position_handler")),
	}
}

// identity extracts the principal plus the (chainId, nftId) path identity.
func (h *PositionHandler) identity(w http.ResponseWriter, r *http.Request) (*domain.AuthenticatedUser, int64, string, bool) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return nil, 0, "", false
	}

	chainID, err := parseChainIDParam(r)
	if err != nil {
		RespondError(w, r, err)
		return nil, 0, "", false
	}

	nftID := chi.URLParam(r, "nftId")
	if nftID == "" {
		RespondError(w, r, violation("nftId", "is required"))
		return nil, 0, "", false
	}

	return user, chainID, nftID, true
}

// Create handles PUT /v1/positions/uniswapv3/{chainId}/{nftId}: creates the
// position from its first on-chain event.
func (h *PositionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreatePositionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	event, err := req.Event.ToDomain()
	if err != nil {
		RespondError(w, r, err)
		return
	}

	position, err := h.positions.CreateFromEvent(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID, service.CreatePositionParams{
		PoolAddress: req.PoolAddress,
		TickLower:   req.TickLower,
		TickUpper:   req.TickUpper,
		Event:       event,
	})
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, Success(toPositionResponse(position)))
}

// Append handles PATCH /v1/positions/uniswapv3/{chainId}/{nftId}: appends
// ledger events in blockchain order.
func (h *PositionHandler) Append(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req PatchPositionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	events := make([]*domain.LedgerEvent, 0, len(req.Events))
	for i := range req.Events {
		event, err := req.Events[i].ToDomain()
		if err != nil {
			RespondError(w, r, err)
			return
		}
		events = append(events, event)
	}

	position, err := h.positions.AppendEvents(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID, events)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toPositionResponse(position)))
}

// Get handles GET /v1/positions/uniswapv3/{chainId}/{nftId}.
func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	position, err := h.positions.Get(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toPositionResponse(position)))
}

// Delete handles DELETE /v1/positions/uniswapv3/{chainId}/{nftId}.
func (h *PositionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.positions.Delete(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID); err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(map[string]string{"status": "deleted"}))
}

// ListUniswapV3 handles GET /v1/positions/uniswapv3/list.
func (h *PositionHandler) ListUniswapV3(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, []domain.Protocol{domain.ProtocolUniswapV3})
}

// ListAll handles GET /v1/positions/list: cross-protocol, optionally
// narrowed by a protocols filter.
func (h *PositionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	protocols, err := parseProtocols(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	h.list(w, r, protocols)
}

// list runs the shared filter/sort/paginate pipeline.
func (h *PositionHandler) list(w http.ResponseWriter, r *http.Request, protocols []domain.Protocol) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return
	}

	limit, offset, err := parsePage(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	chainID, err := parseChainIDQuery(r, false)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	status, err := parseStatus(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	sortBy, sortDesc, err := parseSort(r)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	positions, total, err := h.positions.List(r.Context(), store.PositionFilter{
		UserID:    user.ID,
		Protocols: protocols,
		ChainID:   chainID,
		Status:    status,
		SortBy:    sortBy,
		SortDesc:  sortDesc,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Paginated(toPositionResponses(positions), total, limit, offset))
}

// Ledger handles GET /v1/positions/uniswapv3/{chainId}/{nftId}/ledger.
func (h *PositionHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	events, err := h.positions.Ledger(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toLedgerEventResponses(events)))
}

// APR handles GET /v1/positions/uniswapv3/{chainId}/{nftId}/apr.
func (h *PositionHandler) APR(w http.ResponseWriter, r *http.Request) {
	user, chainID, nftID, ok := h.identity(w, r)
	if !ok {
		return
	}

	apr, err := h.positions.APR(r.Context(), user.ID, domain.ProtocolUniswapV3, chainID, nftID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toAPRResponse(apr)))
}
