// Package metrics exports update attempts, phase failures and the device
// snapshot to Prometheus.
package metrics

import (
	"time"

	"github.com/fieldunit/fwwatch/pkg/device"
	"github.com/fieldunit/fwwatch/pkg/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	attempts       *prometheus.CounterVec
	phaseFailures  *prometheus.CounterVec
	updateDuration prometheus.Histogram
}

// New registers the update metrics and a collector over store with reg.
func New(reg prometheus.Registerer, store *device.Store) *Metrics {
	promFactory := promauto.With(reg)
	m := &Metrics{
		attempts: promFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwwatch_update_attempts_total",
				Help: "Total number of update attempts labelled by how they ended",
			},
			[]string{"result"},
		),
		phaseFailures: promFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fwwatch_phase_failures_total",
				Help: "Total number of failed update phases labelled by phase and reason",
			},
			[]string{"phase", "reason"},
		),
		updateDuration: promFactory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fwwatch_update_duration_seconds",
			Help:    "Duration of update attempts from admission to the final result",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),
	}
	if store != nil {
		reg.MustRegister(newDeviceCollector(store))
	}
	return m
}

// PhaseFinished counts phases that did not complete.
func (m *Metrics) PhaseFinished(phase orchestrator.Phase, outcome orchestrator.Outcome, _ time.Duration) {
	if outcome.OK() {
		return
	}
	m.phaseFailures.With(prometheus.Labels{
		"phase":  string(phase),
		"reason": orchestrator.Reason(outcome.Err),
	}).Inc()
}

// UpdateFinished records one update attempt.
func (m *Metrics) UpdateFinished(err error, elapsed time.Duration) {
	m.attempts.With(prometheus.Labels{"result": orchestrator.Reason(err)}).Inc()
	m.updateDuration.Observe(elapsed.Seconds())
}
