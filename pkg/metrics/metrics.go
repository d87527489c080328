package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Booking related metrics
	ReservationsTotal   *prometheus.CounterVec // by span kind: single, multi
	ReservationRows     prometheus.Histogram
	ConflictsTotal      *prometheus.CounterVec // by operation: reserve, reschedule
	ReschedulesTotal    prometheus.Counter
	CancellationsTotal  prometheus.Counter
	CancelledChainRows  prometheus.Histogram
	GridBuildsTotal     prometheus.Counter
	GridBuildLatency    prometheus.Histogram
	TemplateCacheHits   prometheus.Counter
	TemplateCacheMisses prometheus.Counter

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics against reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ReservationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Total number of committed slot reservations",
		}, []string{"span"}),
		ReservationRows: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_rows",
			Help:      "Rows written per reservation (1 = single slot)",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
		}),
		ConflictsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Reservations and reschedules rejected by the availability check",
		}, []string{"operation"}),
		ReschedulesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedules_total",
			Help:      "Total number of committed reschedules",
		}),
		CancellationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Total number of cancelled bookings",
		}),
		CancelledChainRows: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cancelled_chain_rows",
			Help:      "Rows flagged per cancellation",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
		}),
		GridBuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_builds_total",
			Help:      "Total number of weekly grids built",
		}),
		GridBuildLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_build_duration_seconds",
			Help:      "Time spent building a weekly grid",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		TemplateCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_hits_total",
			Help:      "Weekly template lookups served from cache",
		}),
		TemplateCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_cache_misses_total",
			Help:      "Weekly template lookups that hit the repository",
		}),

		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
	}
}
