// Package metrics holds process-level Prometheus metrics shared by the
// trigger consumer, the status publisher and the property aggregator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the platform counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	TriggerRecords       *prometheus.CounterVec
	StatusPublishes      *prometheus.CounterVec
	PropertyPathFailures prometheus.Counter
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg (tests pass a fresh registry).
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TriggerRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propcheck_trigger_records_total",
			Help: "Trigger records consumed, by topic and outcome",
		}, []string{"topic", "outcome"}),
		StatusPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propcheck_status_publishes_total",
			Help: "Status topic publishes, by outcome",
		}, []string{"outcome"}),
		PropertyPathFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "propcheck_property_path_write_failures_total",
			Help: "Property metadata paths that failed to persist",
		}),
	}
}

// ObserveTriggerRecord counts one handled record. outcome is one of "ok",
// "retried", "dropped", "dead_lettered" or "held".
func (m *Metrics) ObserveTriggerRecord(topic, outcome string) {
	if m == nil {
		return
	}
	m.TriggerRecords.WithLabelValues(topic, outcome).Inc()
}

func (m *Metrics) ObserveStatusPublish(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StatusPublishes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPropertyPathFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PropertyPathFailures.Add(float64(n))
}
