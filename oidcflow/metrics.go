package oidcflow

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the optional Prometheus instrumentation for a Client.
// Grounded on server.Config.PrometheusRegistry in the teacher: metrics
// are only registered, and only observed, when a registry is supplied —
// nil means "do nothing", not "panic".
type metrics struct {
	transitions     *prometheus.CounterVec
	refreshOutcomes *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcflow_state_transitions_total",
			Help: "Count of oidcflow.Client state transitions, by resulting phase.",
		}, []string{"phase"}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcflow_refresh_outcomes_total",
			Help: "Count of refresh attempts, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.transitions, m.refreshOutcomes)
	return m
}

func (m *metrics) observeTransition(phase Phase) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(phase.String()).Inc()
}

func (m *metrics) observeRefreshOutcome(outcome string) {
	if m == nil {
		return
	}
	m.refreshOutcomes.WithLabelValues(outcome).Inc()
}

// WithPrometheusRegistry enables metrics, registering them against reg.
// A nil Client.metrics (the default) is a safe no-op everywhere it's
// read, so this option is the only way to turn instrumentation on.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}
