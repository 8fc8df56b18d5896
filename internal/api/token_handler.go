package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/store"
)

// TokenHandler serves ERC-20 token discovery and search.
type TokenHandler struct {
	tokens *service.TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(tokens *service.TokenService, log *slog.Logger) *TokenHandler {
	if tokens == nil {
		panic("token service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &TokenHandler{
		tokens: tokens,
		logger: log.With(slog.String("component", "token_handler")),
	}
}

// Discover handles POST /v1/tokens/erc20. Discovery is idempotent: the same
// (chainId, address) pair always yields the same token id with status 200.
func (h *TokenHandler) Discover(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	token, err := h.tokens.DiscoverERC20(r.Context(), req.ChainID, req.Address)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toTokenResponse(token)))
}

// Search handles GET /v1/tokens/erc20/search. chainId is required; at least
// one of symbol, name or address must refine the search.
func (h *TokenHandler) Search(w http.ResponseWriter, r *http.Request) {
	chainID, err := parseChainIDQuery(r, true)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := store.TokenSearch{
		ChainID: chainID,
		Symbol:  strings.TrimSpace(query.Get("symbol")),
		Name:    strings.TrimSpace(query.Get("name")),
		Address: strings.TrimSpace(query.Get("address")),
		Limit:   service.MaxSearchResults,
	}
	if filter.Symbol == "" && filter.Name == "" && filter.Address == "" {
		RespondError(w, r, violation("query", "at least one of symbol, name or address is required"))
		return
	}

	tokens, err := h.tokens.Search(r.Context(), filter)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	responses := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		responses = append(responses, toTokenResponse(&tokens[i]))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(responses))
}
