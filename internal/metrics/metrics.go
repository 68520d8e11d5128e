// Package metrics declares the Prometheus instruments the server exports on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scoring outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
)

var (
	// ScoringTotal counts scoring calls by outcome and fallback reason
	// ("none" on success).
	ScoringTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscan_scoring_total",
			Help: "Total affinity scoring calls by outcome",
		},
		[]string{"outcome", "reason"},
	)

	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookscan_scoring_duration_seconds",
			Help:    "Time spent producing a prediction, fallbacks included",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"provider"},
	)

	CatalogLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscan_catalog_lookups_total",
			Help: "Catalog lookups by result (hit, miss, not_found, error)",
		},
		[]string{"result"},
	)

	LibraryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscan_library_mutations_total",
			Help: "Library writes by operation and result",
		},
		[]string{"operation", "result"},
	)

	ScanCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscan_scan_candidates_total",
			Help: "Scan candidates by terminal state (accepted, discarded, superseded, expired)",
		},
		[]string{"state"},
	)

	ActiveCandidates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookscan_scan_candidates_active",
			Help: "Scan candidates currently held in memory",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookscan_event_stream_clients",
			Help: "Connected server-sent event clients",
		},
	)

	// Circuit breaker instruments, labelled by breaker name.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookscan_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookscan_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookscan_api_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookscan_api_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

// RecordScoring records one scoring call.
func RecordScoring(provider, outcome, reason string, d time.Duration) {
	if reason == "" {
		reason = "none"
	}
	ScoringTotal.WithLabelValues(outcome, reason).Inc()
	ScoringDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
