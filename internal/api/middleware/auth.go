// Package middleware implements the HTTP middleware for the API: the
// ordered authentication strategies and request tracing.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/positionhq/position-api/internal/api"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/domain"
	"github.com/positionhq/position-api/internal/platform/logger"
	"github.com/positionhq/position-api/internal/redact"
	"github.com/positionhq/position-api/internal/service"
	"github.com/positionhq/position-api/internal/service/auth"
)

// sessionCookieName is the fallback session transport for browser clients.
const sessionCookieName = "session"

// Authenticator resolves request credentials into a principal. Strategies
// run in order: a token carrying the API-key marker goes to key
// validation, anything else to session validation. The first definitive
// result wins; with neither, the handler never runs.
type Authenticator struct {
	apiKeys  *service.APIKeyService
	sessions auth.SessionService
	wallets  *service.WalletService
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(apiKeys *service.APIKeyService, sessions auth.SessionService, wallets *service.WalletService, log *slog.Logger) *Authenticator {
	if apiKeys == nil {
		panic("api key service cannot be nil")
	}
	if sessions == nil {
		panic("session service cannot be nil")
	}
	if wallets == nil {
		panic("wallet service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Authenticator{
		apiKeys:  apiKeys,
		sessions: sessions,
		wallets:  wallets,
		logger:   log.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate accepts an API key or a session token.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return a.authenticate(next, true)
}

// AuthenticateSession accepts only a session token. API-key management
// routes use this chain: keys must not mint or revoke keys.
func (a *Authenticator) AuthenticateSession(next http.Handler) http.Handler {
	return a.authenticate(next, false)
}

func (a *Authenticator) authenticate(next http.Handler, allowAPIKey bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), a.logger)

		token := bearerToken(r)
		if token == "" {
			api.RespondError(w, r, domain.ErrUnauthorized)
			return
		}

		var user *domain.AuthenticatedUser
		var err error

		if auth.IsAPIKey(token) {
			if !allowAPIKey {
				log.Debug("api key presented to a session-only route")
				api.RespondError(w, r, domain.ErrUnauthorized)
				return
			}
			user, err = a.viaAPIKey(r, token)
		} else {
			user, err = a.viaSession(r, token)
		}
		if err != nil {
			log.Debug("authentication failed", slog.String("error", redact.Error(err)))
			api.RespondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithUser(r.Context(), user)))
	})
}

// viaAPIKey validates the key and composes the principal from its owner.
func (a *Authenticator) viaAPIKey(r *http.Request, token string) (*domain.AuthenticatedUser, error) {
	key, err := a.apiKeys.Validate(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return a.wallets.LoadPrincipal(r.Context(), key.UserID)
}

// viaSession validates the session token and composes the principal from
// its claims.
func (a *Authenticator) viaSession(r *http.Request, token string) (*domain.AuthenticatedUser, error) {
	claims, err := a.sessions.ValidateSession(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return a.wallets.LoadPrincipal(r.Context(), claims.UserID)
}

// bearerToken extracts the credential: Authorization bearer first, session
// cookie as the browser fallback.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
