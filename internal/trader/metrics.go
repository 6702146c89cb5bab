package trader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine collectors. A nil *Metrics records nothing.
//
//	scalpbot_decisions_total{signal}
//	scalpbot_orders_total{mode,kind,side}
//	scalpbot_trades_total{result}
//	scalpbot_exit_reasons_total{reason,side}
//	scalpbot_cycle_errors_total{kind}
//	scalpbot_cooldown_skips_total
//	scalpbot_balance
//	scalpbot_position_open
//	scalpbot_cycle_duration_seconds
type Metrics struct {
	decisions     *prometheus.CounterVec
	orders        *prometheus.CounterVec
	trades        *prometheus.CounterVec
	exitReasons   *prometheus.CounterVec
	cycleErrors   *prometheus.CounterVec
	cooldownSkips prometheus.Counter
	balance       prometheus.Gauge
	positionOpen  prometheus.Gauge
	cycleDuration prometheus.Histogram
}

// NewMetrics builds and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalpbot_decisions_total",
			Help: "Signals evaluated",
		}, []string{"signal"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalpbot_orders_total",
			Help: "Orders submitted or simulated",
		}, []string{"mode", "kind", "side"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalpbot_trades_total",
			Help: "Trades by result (open|win|loss)",
		}, []string{"result"}),
		exitReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalpbot_exit_reasons_total",
			Help: "Closed positions split by reason and side",
		}, []string{"reason", "side"}),
		cycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scalpbot_cycle_errors_total",
			Help: "Failed decision cycles by error kind",
		}, []string{"kind"}),
		cooldownSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scalpbot_cooldown_skips_total",
			Help: "Live cycles skipped because the cooldown had not elapsed",
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scalpbot_balance",
			Help: "Last known quote asset balance",
		}),
		positionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scalpbot_position_open",
			Help: "1 while the engine holds a position",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scalpbot_cycle_duration_seconds",
			Help:    "Duration of live decision cycles",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.decisions, m.orders, m.trades, m.exitReasons, m.cycleErrors,
			m.cooldownSkips, m.balance, m.positionOpen, m.cycleDuration)
	}
	return m
}

func (m *Metrics) decision(signal string) {
	if m != nil {
		m.decisions.WithLabelValues(signal).Inc()
	}
}

func (m *Metrics) order(mode, kind, side string) {
	if m != nil {
		m.orders.WithLabelValues(mode, kind, side).Inc()
	}
}

func (m *Metrics) opened() {
	if m != nil {
		m.trades.WithLabelValues("open").Inc()
		m.positionOpen.Set(1)
	}
}

func (m *Metrics) closed(s Settlement) {
	if m == nil {
		return
	}
	result := "loss"
	if s.Win() {
		result = "win"
	}
	m.trades.WithLabelValues(result).Inc()
	m.exitReasons.WithLabelValues(string(s.Reason), string(s.Position.Side)).Inc()
	m.positionOpen.Set(0)
}

func (m *Metrics) flat() {
	if m != nil {
		m.positionOpen.Set(0)
	}
}

func (m *Metrics) cycleError(kind string) {
	if m != nil {
		m.cycleErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) cooldownSkip() {
	if m != nil {
		m.cooldownSkips.Inc()
	}
}

func (m *Metrics) setBalance(v float64) {
	if m != nil {
		m.balance.Set(v)
	}
}

func (m *Metrics) observeCycle(d time.Duration) {
	if m != nil {
		m.cycleDuration.Observe(d.Seconds())
	}
}
