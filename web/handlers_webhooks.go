package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

// signatureHeaders maps provider names to the header carrying the payload signature.
var signatureHeaders = map[string]string{
	"stripe": "Stripe-Signature",
	"dummy":  "X-Dummy-Signature",
}

// PaymentWebhook receives a billing notification. Rejected and duplicate events
// are acknowledged; only processing failures return 5xx so the provider retries.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.ErrPayloadTooLarge(tooLarge.Limit))
			return
		}
		jsonapi.WriteBadRequest(w, "Failed to read body")
		return
	}

	header, ok := signatureHeaders[provider]
	if !ok {
		header = "X-Signature"
	}

	res, err := h.events.HandleWebhook(r.Context(), provider, body, r.Header.Get(header))
	if err != nil {
		if errors.Is(err, billing.ErrSignatureInvalid) || errors.Is(err, app.ErrUnknownProvider) {
			h.logger.Warn().Err(err).Str("provider", provider).Msg("webhook refused")
		}
		h.writeError(w, r, err)
		return
	}

	meta := jsonapi.Meta{"outcome": res.Outcome}
	if res.Reason != "" {
		meta["reason"] = res.Reason
	}
	jsonapi.WriteMeta(w, http.StatusOK, meta)
}
