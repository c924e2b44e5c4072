// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/storely-ai/discovery-engine/cmd/discovery-api/handlers"
	"github.com/storely-ai/discovery-engine/cmd/discovery-api/middleware"
	"github.com/storely-ai/discovery-engine/internal/cache"
	"github.com/storely-ai/discovery-engine/internal/config"
	"github.com/storely-ai/discovery-engine/internal/engine"
	"github.com/storely-ai/discovery-engine/internal/observability"
	"github.com/storely-ai/discovery-engine/internal/storage"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, repos *storage.Repositories, cacheClient cache.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Health checks (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"discovery-engine"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	tokens := middleware.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)

	eng := engine.New(
		repos.Catalog,
		repos.Sessions,
		storage.NewPreferenceStore(repos.Users),
		logger,
		cfg.Chat,
	)

	chatHandler := handlers.NewChatHandler(logger, eng)
	sessionsHandler := handlers.NewSessionsHandler(logger, repos.Sessions)
	productsHandler := handlers.NewProductsHandler(logger, repos.Catalog, cacheClient, cfg.Cache.TTL)
	authHandler := handlers.NewAuthHandler(logger, repos.Users, tokens)
	analyticsHandler := handlers.NewAnalyticsHandler(logger, repos.Sessions, repos.Catalog)

	r.Route("/api/v1", func(r chi.Router) {
		// Bearer tokens are honored everywhere; chat and catalog
		// reads also work anonymously.
		r.Use(middleware.Auth(tokens, false))

		r.Post("/chat", chatHandler.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionsHandler.Create)
			r.Get("/{sessionID}", sessionsHandler.Get)
			r.Delete("/{sessionID}", sessionsHandler.Delete)
		})

		r.Get("/products", productsHandler.List)
		r.Get("/products/{productID}", productsHandler.Get)
		r.Get("/categories", productsHandler.Categories)
		r.Get("/search", productsHandler.Search)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/profile", authHandler.Profile)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Post("/refresh-token", authHandler.RefreshToken)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/users/{userID}/sessions", analyticsHandler.UserSessions)
			r.Get("/popular-products", analyticsHandler.PopularProducts)
		})
	})

	return r
}
