// Package web provides the JSON:API endpoints used by the single-page frontend
// and the payment webhook receiver.
// Stateless design: every request carries its bearer token.
package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/adapters/metrics"
	"github.com/memomeet/memomeet/app"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxUploadBytes bounds audio uploads when Deps leaves it unset.
	DefaultMaxUploadBytes = 25 << 20

	// maxWebhookBytes bounds webhook payloads.
	maxWebhookBytes = 1 << 20
)

// Handler provides the API endpoints.
type Handler struct {
	tokens    *auth.TokenService
	accounts  *app.AccountService
	billing   *app.BillingService
	events    *app.BillingEventService
	summaries *app.SummaryService
	metrics   *metrics.Collector
	maxUpload int64
	logger    zerolog.Logger
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Tokens         *auth.TokenService
	Accounts       *app.AccountService
	Billing        *app.BillingService
	Events         *app.BillingEventService
	Summaries      *app.SummaryService
	Metrics        *metrics.Collector // optional
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{
		tokens:    deps.Tokens,
		accounts:  deps.Accounts,
		billing:   deps.Billing,
		events:    deps.Events,
		summaries: deps.Summaries,
		metrics:   deps.Metrics,
		maxUpload: maxUpload,
		logger:    deps.Logger,
	}
}

// Router returns the API router. It serves /api/* and /webhooks/*.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Payment webhooks are authenticated by their signature
	r.Post("/webhooks/{provider}", h.PaymentWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/me", h.Me)
		r.Get("/me/events", h.MyEvents)
		r.Post("/token/refresh", h.RefreshToken)

		r.Route("/billing", func(r chi.Router) {
			r.Get("/catalog", h.Catalog)
			r.Post("/checkout", h.Checkout)
			r.Post("/subscribe", h.Subscribe)
			r.Post("/unsubscribe", h.Unsubscribe)
			r.Get("/invoices", h.Invoices)
		})

		r.Route("/summaries", func(r chi.Router) {
			r.Get("/", h.ListSummaries)
			r.Post("/", h.CreateSummary)
			r.Get("/{id}", h.GetSummary)
			r.Patch("/{id}", h.UpdateSummary)
			r.Delete("/{id}", h.DeleteSummary)
			r.Post("/{id}/export", h.ExportSummary)
		})
	})

	return r
}
