package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveReconcile(2, 1, 3, time.Now())
	m.IncrementItemFailure("create")
	m.IncrementSweepTransition("overdue")
	m.IncrementSweepTransition("overdue")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updated))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Archived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemFailures.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepTransitions.WithLabelValues("overdue")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReconcile(1, 1, 1, time.Now())
		m.IncrementItemFailure("update")
		m.IncrementSweepTransition("pending")
		m.ObserveSweep(time.Now())
	})
}
