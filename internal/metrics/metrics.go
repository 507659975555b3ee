// Package metrics holds the prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailpilot"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	CacheHit       = "hit"
	CacheMiss      = "miss"
	CacheError     = "error"
)

// Metrics groups every collector the service records to
type Metrics struct {
	ProviderAttempts     *prometheus.CounterVec
	ProviderLatency      *prometheus.HistogramVec
	LocalFallbacks       *prometheus.CounterVec
	CacheLookups         *prometheus.CounterVec
	VerificationOutcomes *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider calls by outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Time spent waiting for a provider",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		LocalFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "local_fallbacks_total",
				Help:      "Calls answered by the local inference engine",
			},
			[]string{"operation"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Analysis cache lookups by result",
			},
			[]string{"result"},
		),
		VerificationOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verification_outcomes_total",
				Help:      "Verification workflow terminal states",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		m.ProviderAttempts,
		m.ProviderLatency,
		m.LocalFallbacks,
		m.CacheLookups,
		m.VerificationOutcomes,
	)
	return m
}

// ObserveProvider records one provider attempt
func (m *Metrics) ObserveProvider(provider, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, operation, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// LocalFallback records a call answered locally
func (m *Metrics) LocalFallback(operation string) {
	if m == nil {
		return
	}
	m.LocalFallbacks.WithLabelValues(operation).Inc()
}

// CacheLookup records a cache hit, miss or error
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// VerificationOutcome records the terminal state of a verification task
func (m *Metrics) VerificationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.VerificationOutcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
