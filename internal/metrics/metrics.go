// Package metrics holds the Prometheus counters exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidrelay"

// Cascade phases.
const (
	PhaseAggregate = "aggregate"
	PhaseSource    = "source"
	PhaseEmbed     = "embed"
	PhaseFallback  = "fallback"
)

var (
	// CascadeOutcomes counts resolutions by the phase that ended them.
	CascadeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cascade_outcomes_total",
		Help:      "Resolution outcomes by the cascade phase and source that produced them.",
	}, []string{"phase", "source"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_failures_total",
		Help:      "Individual source or embed scrapes that failed or yielded no usable stream.",
	}, []string{"source"})

	TMDBErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tmdb_errors_total",
		Help:      "TMDB metadata lookups that failed.",
	})

	// RelayRequests counts proxy relay requests by result (ok, invalid, error).
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_requests_total",
		Help:      "Proxy relay requests by result.",
	}, []string{"result"})
)
