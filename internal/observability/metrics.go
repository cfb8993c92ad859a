// Package observability wires the engine's counters into
// prometheus/client_golang, a teacher dependency that was declared but never
// imported by any teacher source file — given a real home here.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-wide registry of engine counters/gauges.
type Metrics struct {
	Registry *prometheus.Registry

	SignalsEmitted   *prometheus.CounterVec
	TradesOpened     prometheus.Counter
	TradesClosed     *prometheus.CounterVec
	LearningCycles   prometheus.Counter
	DeployDecisions  *prometheus.CounterVec
	ActiveTrades     prometheus.Gauge
}

// New builds and registers a fresh Metrics set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldintel_signals_emitted_total",
			Help: "Total signals emitted by the scorer, labeled by direction.",
		}, []string{"direction"}),
		TradesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goldintel_paper_trades_opened_total",
			Help: "Total paper trades opened by the auto-logger.",
		}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldintel_paper_trades_closed_total",
			Help: "Total paper trades closed, labeled by result.",
		}, []string{"result"}),
		LearningCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goldintel_learning_cycles_total",
			Help: "Total strategy-factory loop iterations run.",
		}),
		DeployDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldintel_deploy_decisions_total",
			Help: "Strategy version deploy-gate decisions, labeled by outcome.",
		}, []string{"outcome"}),
		ActiveTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goldintel_active_paper_trades",
			Help: "Currently open paper trades.",
		}),
	}

	reg.MustRegister(
		m.SignalsEmitted,
		m.TradesOpened,
		m.TradesClosed,
		m.LearningCycles,
		m.DeployDecisions,
		m.ActiveTrades,
	)
	return m
}
