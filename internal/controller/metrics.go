package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the controller's traffic with the host.
type Metrics struct {
	// Pulls by result: ok, error, discarded.
	Pulls *prometheus.CounterVec

	// Pushes by message kind; unrecognised kinds count as "unknown".
	Pushes *prometheus.CounterVec

	// Commands by kind and result.
	Commands *prometheus.CounterVec

	// PollLoops is 1 while a poll loop runs, 0 otherwise.
	PollLoops prometheus.Gauge
}

// NewMetrics registers the controller metrics with reg. A nil reg gets a
// private registry that nothing scrapes.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Pulls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "trustguard_pulls_total",
			Help: "State pulls by result.",
		}, []string{"result"}),

		Pushes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "trustguard_pushes_total",
			Help: "Pushed messages received by kind.",
		}, []string{"kind"}),

		Commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "trustguard_commands_total",
			Help: "Commands sent to the extension by kind and result.",
		}, []string{"kind", "result"}),

		PollLoops: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "trustguard_poll_loops",
			Help: "Number of running poll loops (0 or 1).",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
