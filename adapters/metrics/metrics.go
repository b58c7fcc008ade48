// Package metrics provides Prometheus metrics collection for memomeet.
package metrics

import (
	"strings"
	"time"

	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memomeet"

// Collector holds all Prometheus metrics for memomeet.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Billing metrics
	WebhooksTotal           *prometheus.CounterVec
	GateOutcomes            *prometheus.CounterVec
	ReconciliationsRequired prometheus.Counter
	CreditsGrantedTotal     *prometheus.CounterVec

	// Summarizer metrics
	SummarizerDuration *prometheus.HistogramVec
	SummarizerErrors   *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"reason"},
		),
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_webhooks_total",
				Help:      "Billing events processed by provider, type and outcome",
			},
			[]string{"provider", "type", "outcome"},
		),
		GateOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_gate_total",
				Help:      "Paid operations by gate outcome",
			},
			[]string{"outcome"},
		),
		ReconciliationsRequired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_required_total",
				Help:      "Paid operations that succeeded without their debit",
			},
		),
		CreditsGrantedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_granted_total",
				Help:      "Credits added to accounts by source",
			},
			[]string{"source"},
		),
		SummarizerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summarizer_duration_seconds",
				Help:      "Summarization provider call duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"step"},
		),
		SummarizerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summarizer_errors_total",
				Help:      "Summarization provider failures by step",
			},
			[]string{"step"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// WebhookProcessed counts a processed billing event.
func (c *Collector) WebhookProcessed(provider string, eventType billing.EventType, outcome billing.Outcome) {
	c.WebhooksTotal.WithLabelValues(provider, string(eventType), string(outcome)).Inc()
}

// GateOutcome counts a Usage Gate decision.
func (c *Collector) GateOutcome(outcome string) {
	c.GateOutcomes.WithLabelValues(outcome).Inc()
}

// ReconciliationRequired counts a paid operation whose debit failed.
func (c *Collector) ReconciliationRequired() {
	c.ReconciliationsRequired.Inc()
}

// CreditsGranted counts credits added by source.
func (c *Collector) CreditsGranted(source string, n int64) {
	if n <= 0 {
		return
	}
	c.CreditsGrantedTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveSummarizer records a summarization provider call.
func (c *Collector) ObserveSummarizer(step string, d time.Duration, err error) {
	c.SummarizerDuration.WithLabelValues(step).Observe(d.Seconds())
	if err != nil {
		c.SummarizerErrors.WithLabelValues(step).Inc()
	}
}

// NormalizePath reduces cardinality when no route pattern is known.
// e.g., /api/summaries/4f9c... -> /api/summaries/:id
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if looksLikeID(p) {
			parts[i] = ":id"
		}
	}
	path = strings.Join(parts, "/")
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}

func looksLikeID(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, r := range segment {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// Ensure interface compliance.
var _ ports.BillingMetrics = (*Collector)(nil)

// Nop discards billing metrics.
type Nop struct{}

func (Nop) WebhookProcessed(string, billing.EventType, billing.Outcome) {}
func (Nop) GateOutcome(string)                                        {}
func (Nop) ReconciliationRequired()                                   {}
func (Nop) CreditsGranted(string, int64)                              {}

var _ ports.BillingMetrics = Nop{}
