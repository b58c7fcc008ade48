package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/memomeet/memomeet/adapters/export"
	"github.com/memomeet/memomeet/adapters/payment"
	"github.com/memomeet/memomeet/adapters/summarizer"
	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

// apiError maps an application error to its JSON:API representation.
// The boolean is false for unexpected errors, which are logged and hidden.
func apiError(err error) (jsonapi.Error, bool) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return jsonapi.ErrPayloadTooLarge(tooLarge.Limit), true

	case errors.Is(err, account.ErrInsufficientCredits):
		return jsonapi.ErrPaymentRequired("Not enough credits, buy a pack or subscribe"), true
	case errors.Is(err, account.ErrConflictingSubscription):
		return jsonapi.ErrConflict("Cancel the current subscription before subscribing again"), true
	case errors.Is(err, app.ErrNoSubscription):
		return jsonapi.ErrBadRequest("No active subscription"), true

	case errors.Is(err, billing.ErrInvalidPrice):
		return jsonapi.NewError(http.StatusBadRequest, "invalid_price", "Invalid Price").
			Detail(err.Error()).Pointer("/price_id").Build(), true
	case errors.Is(err, billing.ErrSignatureInvalid):
		return jsonapi.NewError(http.StatusBadRequest, "invalid_signature", "Invalid Signature").
			Detail("Webhook signature verification failed").Build(), true
	case errors.Is(err, app.ErrUnknownProvider):
		return jsonapi.ErrNotFound("payment provider"), true

	case errors.Is(err, summary.ErrNotFound):
		return jsonapi.ErrNotFound("summary"), true
	case errors.Is(err, summary.ErrEmptyContent):
		return jsonapi.ErrValidation("content", "content must not be empty"), true
	case errors.Is(err, app.ErrEmptyUpload), errors.Is(err, summarizer.ErrEmptyTranscript):
		return jsonapi.ErrValidation("file", "the recording contains no speech"), true
	case errors.Is(err, summarizer.ErrContextLengthExceeded):
		return jsonapi.ErrValidation("file", "the recording is too long to summarize"), true
	case errors.Is(err, summarizer.ErrRateLimitExceeded):
		return jsonapi.ErrRateLimited("The summarization provider is busy, try again later"), true
	case errors.Is(err, app.ErrOperationTimeout):
		return jsonapi.ErrGatewayTimeout("Summarization timed out, no credit was used"), true

	case errors.Is(err, export.ErrMissingToken):
		return jsonapi.NewError(http.StatusBadRequest, "missing_access_token", "Bad Request").
			Detail("A Google access token is required").Header(googleTokenHeader).Build(), true
	case errors.Is(err, export.ErrUnauthorized):
		return jsonapi.ErrForbidden("Google rejected the access token"), true

	case errors.Is(err, summarizer.ErrDisabled),
		errors.Is(err, export.ErrDisabled),
		errors.Is(err, payment.ErrPaymentsDisabled):
		return jsonapi.ErrServiceUnavailable("This feature is not configured"), true
	}
	return jsonapi.ErrInternal(""), false
}

// writeError writes err as a JSON:API error document tagged with the request id.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, known := apiError(err)
	reqID := middleware.GetReqID(r.Context())
	if !known {
		h.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", reqID).
			Msg("request failed")
	}
	jsonapi.WriteError(w, apiErr.WithID(reqID))
}
