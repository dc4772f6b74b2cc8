package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"vaultpay/internal/config"
	"vaultpay/internal/http/handlers"
	middlewarex "vaultpay/internal/http/middleware"
)

// RouterDependencies holds all dependencies for the HTTP router.
type RouterDependencies struct {
	Config   config.Cfg
	Webhooks *handlers.WebhookHandler
	Checkout *handlers.CheckoutHandler
	Data     *handlers.DataHandler
	Admin    *handlers.AdminHandler
}

// NewRouter creates the HTTP router.
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middlewarex.CORS)

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"service": "vaultpay",
		})
	})

	// Provider webhooks (public; gated by signature verification)
	r.Post("/webhooks/stripe", deps.Webhooks.HandleStripe)

	r.Route("/api/v1", func(r chi.Router) {
		// Checkout session creation (public; called by the portal frontend)
		r.Post("/checkout/setup", deps.Checkout.CreateSetupSession)
		r.Post("/checkout/subscription", deps.Checkout.CreateSubscriptionSession)

		// Read APIs (protected by admin token)
		r.Group(func(r chi.Router) {
			r.Use(middlewarex.AdminAuth(deps.Config.Sec.AdminToken))

			r.Get("/transactions", deps.Data.ListTransactions)
			r.Get("/events", deps.Data.ListEvents)
			r.Get("/notifications", deps.Data.ListNotifications)
		})
	})

	// Operational routes (protected by admin token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config.Sec.AdminToken))

		r.Post("/events/replay", deps.Admin.ReplayEvents)
		r.Post("/catalog/sync", deps.Admin.SyncCatalog)
	})

	return r
}
