// Package metrics provides Prometheus instrumentation for the simulator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the simulator's Prometheus collectors. A nil *Recorder is
// safe to use and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ticksTotal        prometheus.Counter
	tradesTotal       *prometheus.CounterVec
	marketEventsTotal *prometheus.CounterVec
	agentFaultsTotal  prometheus.Counter
	tickDuration      prometheus.Histogram
	agentBalance      *prometheus.GaugeVec
	currentTick       prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_ticks_total",
			Help: "Total number of simulation ticks executed",
		}),
		tradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_trades_total",
			Help: "Total number of synthetic trades executed",
		}, []string{"agent", "action"}),
		marketEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_market_events_total",
			Help: "Total number of generated market events",
		}, []string{"type"}),
		agentFaultsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_agent_faults_total",
			Help: "Total number of contained per-agent pipeline faults",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sim_tick_duration_seconds",
			Help:    "Duration of full tick pipelines in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		agentBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_agent_balance",
			Help: "Current balance per agent",
		}, []string{"agent"}),
		currentTick: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sim_current_tick",
			Help: "Current tick counter",
		}),
	}
}

// Registry returns the backing registry for HTTP exposure.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveTick records one completed tick and its duration.
func (r *Recorder) ObserveTick(tick int64, duration time.Duration) {
	if r == nil {
		return
	}
	r.ticksTotal.Inc()
	r.currentTick.Set(float64(tick))
	r.tickDuration.Observe(duration.Seconds())
}

// ObserveTrade records one executed trade.
func (r *Recorder) ObserveTrade(agentID, action string, balance float64) {
	if r == nil {
		return
	}
	r.tradesTotal.WithLabelValues(agentID, action).Inc()
	r.agentBalance.WithLabelValues(agentID).Set(balance)
}

// ObserveMarketEvent records one generated market event.
func (r *Recorder) ObserveMarketEvent(eventType string) {
	if r == nil {
		return
	}
	r.marketEventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveAgentFault records one contained per-agent fault.
func (r *Recorder) ObserveAgentFault() {
	if r == nil {
		return
	}
	r.agentFaultsTotal.Inc()
}

// ResetTick zeroes the tick gauge after an engine reset.
func (r *Recorder) ResetTick() {
	if r == nil {
		return
	}
	r.currentTick.Set(0)
}
