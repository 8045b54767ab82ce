// Package httpapi assembles the HTTP surface: route table, middleware order
// and the split between public, authenticated and paid-only subtrees.
package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter builds the chi router.
//
// The webhook and health check sit outside the rate limiter: Stripe retries
// must never be throttled, and probes should not eat the clients' budget.
func NewRouter(app *handlers.App, country middleware.CountryLookup) chi.Router {
	r := chi.NewRouter()

	// I18N runs before the logger so request lines can carry the resolved
	// country.
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(app.Cfg.CORSAllowedOrigins))
	r.Use(middleware.I18N("en-GB", country))
	r.Use(middleware.Logger(app.Logger))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Post("/billing/webhook", app.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))

			r.Get("/plans", app.Plans)
			r.Post("/auth/register", app.AuthRegister)
			r.Post("/auth/login", app.AuthLogin)
			r.Post("/pre-registration", app.PreRegCreate)
			r.Get("/pre-registration", app.PreRegLookup)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthJWT(app.Cfg.JWTSecret))

				r.Get("/me", app.Me)
				r.Get("/billing/status", app.BillingStatus)
				r.Post("/billing/checkout-session", app.CheckoutSessionCreate)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePaid(app.Users, app.Logger))

					r.Post("/claims", app.ClaimCreate)
					r.Get("/claims", app.ClaimList)
					r.Get("/claims/{claimID}", app.ClaimGet)
				})
			})
		})
	})

	return r
}
