// Package metrics exposes Prometheus metrics for the trading engine:
//
//   - bot_poll_cycles_total            – poll loop iterations
//   - bot_orders_total{mode,side}      – submitted orders (mode: live|simulated)
//   - bot_order_failures_total{side}   – legs that exhausted retries
//   - bot_trades_total{status}         – ledger entries by status
//   - bot_exit_reasons_total{reason}   – position closes by reason
//   - bot_realized_profit_usd          – cumulative realized profit (gauge)
//   - bot_unrealized_pnl_usd           – open position PnL snapshot (gauge)
//
// Served on the health server at /metrics in Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's instruments. A nil *Metrics is valid and makes
// every method a no-op, so wiring metrics stays optional.
type Metrics struct {
	registry *prometheus.Registry

	pollCycles     prometheus.Counter
	orders         *prometheus.CounterVec
	orderFailures  *prometheus.CounterVec
	trades         *prometheus.CounterVec
	exitReasons    *prometheus.CounterVec
	realizedProfit prometheus.Gauge
	unrealizedPnL  prometheus.Gauge
}

// New creates and registers the engine metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_poll_cycles_total",
			Help: "Poll loop iterations",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders submitted",
		}, []string{"mode", "side"}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_order_failures_total",
			Help: "Order legs that exhausted retries",
		}, []string{"side"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Trade ledger entries by status",
		}, []string{"status"}),
		exitReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_exit_reasons_total",
			Help: "Position closes by reason",
		}, []string{"reason"}),
		realizedProfit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_realized_profit_usd",
			Help: "Cumulative realized profit in USD",
		}),
		unrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_unrealized_pnl_usd",
			Help: "Unrealized PnL of the open position in USD",
		}),
	}

	m.registry.MustRegister(
		m.pollCycles, m.orders, m.orderFailures, m.trades,
		m.exitReasons, m.realizedProfit, m.unrealizedPnL,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PollCycle() {
	if m != nil {
		m.pollCycles.Inc()
	}
}

func (m *Metrics) OrderSubmitted(mode, side string) {
	if m != nil {
		m.orders.WithLabelValues(mode, side).Inc()
	}
}

func (m *Metrics) OrderFailed(side string) {
	if m != nil {
		m.orderFailures.WithLabelValues(side).Inc()
	}
}

func (m *Metrics) TradeRecorded(status string) {
	if m != nil {
		m.trades.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) PositionClosed(reason string) {
	if m != nil {
		m.exitReasons.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) SetRealizedProfit(usd float64) {
	if m != nil {
		m.realizedProfit.Set(usd)
	}
}

func (m *Metrics) SetUnrealizedPnL(usd float64) {
	if m != nil {
		m.unrealizedPnL.Set(usd)
	}
}
