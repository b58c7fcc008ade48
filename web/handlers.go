package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

const maxJSONBytes = 64 << 10

// Me returns the caller's entitlement snapshot.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	view, err := h.accounts.Snapshot(r.Context(), claims.AccountID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := accountResource(view)
	res.Attributes["email"] = claims.Email
	jsonapi.WriteResource(w, http.StatusOK, res)
}

// RefreshToken exchanges the caller's valid token for one with a fresh expiry.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, expiresAt, err := h.tokens.RefreshToken(bearerToken(r))
	if err != nil {
		jsonapi.WriteUnauthorized(w, "Invalid token")
		return
	}
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// MyEvents returns the caller's recent billing activity.
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	records, err := h.accounts.Events(r.Context(), claims.AccountID(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(records))
	for _, rec := range records {
		resources = append(resources, eventResource(rec))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{"total": len(resources)})
}

func accountResource(v account.View) jsonapi.Resource {
	return jsonapi.NewResource("accounts", v.ID).
		Attr("credits", v.Credits).
		Attr("available", v.Available).
		Attr("tier", v.Tier).
		Attr("unlimited", v.Unlimited).
		Attr("subscribed", v.Subscribed).
		Attr("has_billing_customer", v.HasBillingCustomer).
		Link("/api/me").
		Build()
}

func eventResource(rec billing.EventRecord) jsonapi.Resource {
	b := jsonapi.NewResource("billing_events", rec.ID).
		Attr("provider", rec.Provider).
		Attr("type", rec.Type).
		Attr("outcome", rec.Outcome).
		Attr("processed_at", rec.ProcessedAt.Format(time.RFC3339))
	if rec.Reason != "" {
		b.Attr("reason", rec.Reason)
	}
	return b.Build()
}

// decodeJSON reads a small JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
