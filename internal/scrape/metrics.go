package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// supervisorMetrics holds the prometheus instruments for the ingestion
// supervisor. Registration goes through promauto.With(reg) so tests can pass
// a fresh registry — or nil to skip registration entirely.
type supervisorMetrics struct {
	// cyclesTotal counts completed ingestion cycles, partitioned by outcome:
	// "ok", "empty", "fetch_error", "parse_error", or "error".
	cyclesTotal *prometheus.CounterVec

	// cycleDuration records the wall-clock duration of each cycle.
	cycleDuration prometheus.Histogram

	// recordsTotal counts articles successfully embedded and upserted.
	recordsTotal prometheus.Counter

	// recordFailures counts articles that failed to embed or upsert.
	recordFailures prometheus.Counter
}

// newSupervisorMetrics registers the supervisor metrics against reg.
func newSupervisorMetrics(reg prometheus.Registerer) *supervisorMetrics {
	factory := promauto.With(reg)

	return &supervisorMetrics{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semsearch",
			Subsystem: "scrape",
			Name:      "cycles_total",
			Help:      "Total number of ingestion cycles completed, partitioned by outcome.",
		}, []string{"outcome"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semsearch",
			Subsystem: "scrape",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of ingestion cycles.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),

		recordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "semsearch",
			Subsystem: "scrape",
			Name:      "records_total",
			Help:      "Total number of articles embedded and upserted into the index.",
		}),

		recordFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "semsearch",
			Subsystem: "scrape",
			Name:      "record_failures_total",
			Help:      "Total number of articles that failed to embed or upsert.",
		}),
	}
}
