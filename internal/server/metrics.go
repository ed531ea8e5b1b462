package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the policy engine.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations *prometheus.CounterVec
	Mutations   *prometheus.CounterVec
	PoolsInit   *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swapguard_evaluations_total",
				Help: "Swap evaluations by outcome and deny reason",
			},
			[]string{"outcome", "reason"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swapguard_config_mutations_total",
				Help: "Configuration mutations by field and result",
			},
			[]string{"field", "result"},
		),
		PoolsInit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swapguard_pools_initialized_total",
				Help: "Pool initializations by classifier outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(m.Evaluations, m.Mutations, m.PoolsInit)
	return m
}

// Handler exposes the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
