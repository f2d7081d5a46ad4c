package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrumentation for the session workflow. Space-sync
// counters exist because propagation failures are swallowed by design and
// would otherwise be invisible outside the logs.
type Metrics struct {
	registry *prometheus.Registry

	SessionsOpened    prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsCancelled prometheus.Counter
	SessionConflicts  prometheus.Counter

	SpaceSyncAttempts prometheus.Counter
	SpaceSyncFailures prometheus.Counter
	SpaceSyncDropped  prometheus.Counter
}

// New builds a Metrics set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_opened_total",
			Help: "Parking sessions successfully opened.",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_completed_total",
			Help: "Parking sessions closed via exit.",
		}),
		SessionsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_cancelled_total",
			Help: "Parking sessions cancelled.",
		}),
		SessionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_sessions_conflicts_total",
			Help: "Open attempts rejected because the plate or space was already occupied.",
		}),
		SpaceSyncAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_space_sync_attempts_total",
			Help: "Attempts to propagate a status change to the space inventory.",
		}),
		SpaceSyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_space_sync_failures_total",
			Help: "Failed propagation attempts (retried up to the configured maximum).",
		}),
		SpaceSyncDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "parking_space_sync_dropped_total",
			Help: "Status updates abandoned after exhausting retries.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
