package web

import (
	"net/http"
	"time"

	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

type checkoutRequest struct {
	PriceID  string `json:"price_id"`
	Quantity int64  `json:"quantity"`
}

type subscribeRequest struct {
	PriceID string `json:"price_id"`
}

// Catalog lists the purchasable credit packs and plans.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	entries := h.billing.Catalog()

	resources := make([]jsonapi.Resource, 0, len(entries))
	for _, e := range entries {
		b := jsonapi.NewResource("prices", e.PriceRef).
			Attr("name", e.Name).
			Attr("kind", e.Kind)
		if e.Kind == billing.PriceOneTime {
			b.Attr("credits", e.Credits)
		} else {
			b.Attr("tier", e.Tier).
				Attr("periodic_credits", e.PeriodicCredits).
				Attr("unlimited", e.Unlimited)
		}
		resources = append(resources, b.Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, nil)
}

// Checkout opens a hosted payment page for a credit pack.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.PriceID == "" && req.Quantity <= 0 {
		jsonapi.WriteError(w, jsonapi.ErrValidation("price_id", "price_id or quantity is required"))
		return
	}

	claims := getClaims(r.Context())
	url, err := h.billing.Checkout(r.Context(), claims.AccountID(), app.CheckoutInput{
		PriceRef: req.PriceID,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"checkout_url": url})
}

// Subscribe opens a hosted subscription page.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.PriceID == "" {
		jsonapi.WriteError(w, jsonapi.ErrValidation("price_id", "price_id is required"))
		return
	}

	claims := getClaims(r.Context())
	url, err := h.billing.Subscribe(r.Context(), claims.AccountID(), claims.Email, req.PriceID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"checkout_url": url})
}

// Unsubscribe cancels the active subscription and returns the updated snapshot.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	if err := h.billing.Unsubscribe(r.Context(), claims.AccountID()); err != nil {
		h.writeError(w, r, err)
		return
	}

	view, err := h.accounts.Snapshot(r.Context(), claims.AccountID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, accountResource(view))
}

// Invoices lists the caller's invoices, newest first.
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	invoices, err := h.billing.Invoices(r.Context(), claims.AccountID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(invoices))
	for _, inv := range invoices {
		resources = append(resources, jsonapi.NewResource("invoices", inv.ID).
			Attr("amount", inv.Amount()).
			Attr("amount_display", inv.Display()).
			Attr("currency", inv.Currency).
			Attr("status", inv.Status).
			Attr("pdf_url", inv.PDFURL).
			Attr("created_at", inv.CreatedAt.Format(time.RFC3339)).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{"total": len(resources)})
}
