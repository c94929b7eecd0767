package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics collects counters for the account synchronization engine.
type SyncMetrics struct {
	CyclesStarted    prometheus.Counter
	CyclesSkipped    prometheus.Counter
	CyclesFailed     prometheus.Counter
	AccountsFetched  prometheus.Counter
	AccountsInserted prometheus.Counter
	CycleDuration    prometheus.Histogram
}

// NewSyncMetrics creates and registers sync metrics on the given registerer.
func NewSyncMetrics(namespace string, reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		CyclesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_started_total",
			Help:      "Number of sync cycles that acquired the single-flight guard.",
		}),
		CyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_skipped_total",
			Help:      "Number of sync triggers skipped because a cycle was already running.",
		}),
		CyclesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_failed_total",
			Help:      "Number of sync cycles that aborted with an error.",
		}),
		AccountsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "accounts_fetched_total",
			Help:      "Number of raw account rows fetched from IDMS.",
		}),
		AccountsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "accounts_inserted_total",
			Help:      "Number of new accounts persisted.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of completed sync cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.CyclesStarted,
		m.CyclesSkipped,
		m.CyclesFailed,
		m.AccountsFetched,
		m.AccountsInserted,
		m.CycleDuration,
	)

	return m
}
