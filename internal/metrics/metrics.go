// Package metrics exposes Prometheus counters for dispatch and persistence,
// written to a node-exporter textfile rather than served over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "feedlog"

// Metrics groups the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	actions       *prometheus.CounterVec
	persistWrites *prometheus.CounterVec
	hydrations    *prometheus.CounterVec
	snapshotBytes prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by type and outcome.",
		}, []string{"action", "outcome"}),
		persistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_writes_total",
			Help:      "Snapshot writes by outcome.",
		}, []string{"outcome"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydrate_total",
			Help:      "Startup hydrations by result.",
		}, []string{"result"}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of the last written snapshot.",
		}),
	}
	m.Registry.MustRegister(m.actions, m.persistWrites, m.hydrations, m.snapshotBytes)
	return m
}

// ObserveAction counts one dispatched action.
func (m *Metrics) ObserveAction(action, outcome string) {
	m.actions.WithLabelValues(action, outcome).Inc()
}

// ObserveWrite counts one snapshot write; size is recorded for successful writes.
func (m *Metrics) ObserveWrite(outcome string, size int) {
	m.persistWrites.WithLabelValues(outcome).Inc()
	if size > 0 {
		m.snapshotBytes.Set(float64(size))
	}
}

// ObserveHydrate counts one hydration attempt.
func (m *Metrics) ObserveHydrate(result string) {
	m.hydrations.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
