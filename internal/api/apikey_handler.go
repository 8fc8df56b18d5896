package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/service"
)

// APIKeyHandler serves API-key management. Its routes are session-only:
// keys cannot mint or revoke keys.
type APIKeyHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService, log *slog.Logger) *APIKeyHandler {
	if keys == nil {
		panic("api key service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &APIKeyHandler{
		keys:   keys,
		logger: log.With(slog.String("component", "apikey_handler")),
	}
}

// List handles GET /v1/user/api-keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return
	}

	keys, err := h.keys.List(r.Context(), user.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(toAPIKeyResponses(keys)))
}

// Create handles POST /v1/user/api-keys. The plaintext key appears in this
// response and nowhere else.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return
	}

	var req CreateAPIKeyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	key, plaintext, err := h.keys.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, Success(CreatedAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	}))
}

// Revoke handles DELETE /v1/user/api-keys/{id}.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, violation("id", "must be a UUID"))
		return
	}

	if err := h.keys.Revoke(r.Context(), user.ID, keyID); err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, Success(map[string]string{"status": "revoked"}))
}
