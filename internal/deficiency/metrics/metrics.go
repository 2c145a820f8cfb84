package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for deficient item reconciliation and the
// overdue sweep. A nil *Metrics records nothing.
type Metrics struct {
	Created           prometheus.Counter
	Updated           prometheus.Counter
	Archived          prometheus.Counter
	ItemFailures      *prometheus.CounterVec
	SweepTransitions  *prometheus.CounterVec
	LifecycleDuration prometheus.Histogram
	SweepDuration     prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "propcheck_deficient_items_created_total",
			Help: "Deficient items created from inspection writes",
		}),
		Updated: factory.NewCounter(prometheus.CounterOpts{
			Name: "propcheck_deficient_items_updated_total",
			Help: "Deficient items whose proxy attributes changed",
		}),
		Archived: factory.NewCounter(prometheus.CounterOpts{
			Name: "propcheck_deficient_items_archived_total",
			Help: "Deficient items archived by reconciliation",
		}),
		ItemFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propcheck_deficient_item_failures_total",
			Help: "Per-item failures, by operation",
		}, []string{"operation"}),
		SweepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propcheck_sweep_transitions_total",
			Help: "State transitions applied by the overdue sweep, by new state",
		}, []string{"state"}),
		LifecycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propcheck_inspection_write_duration_seconds",
			Help:    "Duration of one inspection write reconciliation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "propcheck_sweep_duration_seconds",
			Help:    "Duration of one full overdue sweep",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// ObserveReconcile adds one inspection write's counts.
func (m *Metrics) ObserveReconcile(created, updated, archived int, start time.Time) {
	if m == nil {
		return
	}
	m.Created.Add(float64(created))
	m.Updated.Add(float64(updated))
	m.Archived.Add(float64(archived))
	m.LifecycleDuration.Observe(time.Since(start).Seconds())
}

// IncrementItemFailure counts a failed create, update or archive.
func (m *Metrics) IncrementItemFailure(operation string) {
	if m == nil {
		return
	}
	m.ItemFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementSweepTransition(state string) {
	if m == nil {
		return
	}
	m.SweepTransitions.WithLabelValues(state).Inc()
}

// ObserveSweep records the duration of a sweep. Call with the start time.
func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}
