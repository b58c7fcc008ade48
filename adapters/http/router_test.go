package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/memomeet/memomeet/adapters/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestRouter_Health(t *testing.T) {
	var dbErr error
	health := NewHealthHandler(map[string]HealthChecker{
		"database": checkFunc(func(context.Context) error { return dbErr }),
		"unset":    nil,
	})
	r := NewRouter(RouterConfig{Health: health}, zerolog.Nop())

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	dbErr = errors.New("connection refused")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "database", body["component"])

	// Liveness does not depend on the database.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Version(t *testing.T) {
	r := NewRouter(RouterConfig{Version: "1.2.3"}, zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var v VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, VersionResponse{Version: "1.2.3", Service: "memomeet"}, v)
}

func TestRouter_MountsAPIAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	api := chi.NewRouter()
	api.Get("/api/summaries/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r := NewRouter(RouterConfig{
		API:            api,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsPath:    "/internal/metrics",
	}, zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summaries/sum_0123456789abcdef", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	path := metrics.NormalizePath("/api/summaries/sum_0123456789abcdef")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, path, "4xx")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memomeet_requests_total")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{
		100: "other",
		200: "2xx",
		302: "3xx",
		404: "4xx",
		503: "5xx",
	}
	for status, want := range tests {
		assert.Equal(t, want, statusLabel(status), status)
	}
}

func TestRouter_MountsDocs(t *testing.T) {
	docs := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r := NewRouter(RouterConfig{Docs: docs}, zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/swagger/index.html", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	NewRouter(RouterConfig{}, zerolog.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
