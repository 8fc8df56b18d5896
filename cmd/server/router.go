package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/positionhq/position-api/internal/api"
	apimiddleware "github.com/positionhq/position-api/internal/api/middleware"
)

// setupRouter builds the route tree: public health/auth endpoints, the
// session-only key-management group, and the API-key-or-session domain
// groups.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace(app.logger))

	healthHandler := api.NewHealthHandler()
	authHandler := api.NewAuthHandler(app.walletService, app.logger)
	apiKeyHandler := api.NewAPIKeyHandler(app.apiKeyService, app.logger)
	tokenHandler := api.NewTokenHandler(app.tokenService, app.logger)
	poolHandler := api.NewPoolHandler(app.poolService, app.logger)
	positionHandler := api.NewPositionHandler(app.positionService, app.logger)

	r.Get("/health", healthHandler.Check)

	r.Route("/v1", func(r chi.Router) {
		// Public: nonce issuance and SIWE sign-in.
		r.Get("/auth/nonce", authHandler.Nonce)
		r.Post("/auth/login", authHandler.Login)

		// Session-only: wallet linking and API-key management. Keys must
		// not mint or revoke keys.
		r.Group(func(r chi.Router) {
			r.Use(app.authenticator.AuthenticateSession)

			r.Post("/auth/link-wallet", authHandler.LinkWallet)
			r.Get("/user/api-keys", apiKeyHandler.List)
			r.Post("/user/api-keys", apiKeyHandler.Create)
			r.Delete("/user/api-keys/{id}", apiKeyHandler.Revoke)
		})

		// API key or session.
		r.Group(func(r chi.Router) {
			r.Use(app.authenticator.Authenticate)

			r.Post("/tokens/erc20", tokenHandler.Discover)
			r.Get("/tokens/erc20/search", tokenHandler.Search)

			r.Get("/pools/uniswapv3/{address}", poolHandler.Get)

			r.Get("/positions/list", positionHandler.ListAll)
			r.Route("/positions/uniswapv3", func(r chi.Router) {
				r.Get("/list", positionHandler.ListUniswapV3)
				r.Put("/{chainId}/{nftId}", positionHandler.Create)
				r.Patch("/{chainId}/{nftId}", positionHandler.Append)
				r.Get("/{chainId}/{nftId}", positionHandler.Get)
				r.Delete("/{chainId}/{nftId}", positionHandler.Delete)
				r.Get("/{chainId}/{nftId}/ledger", positionHandler.Ledger)
				r.Get("/{chainId}/{nftId}/apr", positionHandler.APR)
			})
		})
	})

	return r
}
