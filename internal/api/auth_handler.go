package api

import (
	"log/slog"
	"net/http"

	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/service"
)

// AuthHandler serves SIWE sign-in: nonce issuance, login and wallet linking.
type AuthHandler struct {
	wallets *service.WalletService
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(wallets *service.WalletService, log *slog.Logger) *AuthHandler {
	if wallets == nil {
		panic("wallet service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		wallets: wallets,
		logger:  log.With(slog.String("component", "auth_handler")),
	}
}

// Nonce handles GET /v1/auth/nonce.
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	nonce := h.wallets.IssueNonce()
	shared.RespondWithJSON(w, r, http.StatusOK, Success(map[string]string{"nonce": nonce}))
}

// Login handles POST /v1/auth/login: verifies the SIWE message, creates the
// user on first sign-in, and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	result, err := h.wallets.Login(r.Context(), req.Message, req.Signature)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.NewUser {
		status = http.StatusCreated
	}

	shared.RespondWithJSON(w, r, status, Success(LoginResponse{
		Token: result.Token,
		User: UserResponse{
			ID:    result.User.ID,
			Name:  result.User.Name,
			Email: result.User.Email,
			Image: result.User.Image,
		},
		Wallet:  toWalletResponse(result.Wallet),
		NewUser: result.NewUser,
	}))
}

// LinkWallet handles POST /v1/auth/link-wallet: binds an additional wallet
// to the session user.
func (h *AuthHandler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := shared.UserFromContext(r.Context())
	if !ok {
		RespondError(w, r, domain.ErrUnauthorized)
		return
	}

	var req LinkWalletRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		RespondError(w, r, err)
		return
	}

	wallet, err := h.wallets.LinkWallet(r.Context(), user.ID, req.Message, req.Signature)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, Success(toWalletResponse(wallet)))
}
