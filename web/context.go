package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/pkg/jsonapi"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// withClaims adds JWT claims to the context.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// getClaims retrieves JWT claims from context.
func getClaims(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// AuthMiddleware requires a valid bearer token and stores its claims in the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.authFailure("missing")
			jsonapi.WriteUnauthorized(w, "Bearer token required")
			return
		}

		claims, err := h.tokens.ValidateToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				h.authFailure("expired")
				jsonapi.WriteUnauthorized(w, "Token expired")
				return
			}
			h.authFailure("invalid")
			jsonapi.WriteUnauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (h *Handler) authFailure(reason string) {
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
