// Package metrics exposes the bot's Prometheus collectors, served at
// /metrics by the run command's HTTP server.
//
//   - bot_cycles_total{result}          – cycles by outcome (ok|error|skipped)
//   - bot_decisions_total{action,source} – decisions by action and origin
//   - bot_fills_total{side}             – reconciled fills
//   - bot_orders_placed_total{side}     – limit orders placed
//   - bot_orders_cancelled_total        – orders cancelled by the sweep
//   - bot_price_usd / bot_cost_basis_usd / bot_holdings – current gauges
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_cycles_total",
			Help: "Trading cycles by outcome",
		},
		[]string{"result"},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Decisions by action and source",
		},
		[]string{"action", "source"},
	)

	mtxFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_fills_total",
			Help: "Reconciled fills by side",
		},
		[]string{"side"},
	)

	mtxOrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_placed_total",
			Help: "Limit orders placed by side",
		},
		[]string{"side"},
	)

	mtxOrdersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_orders_cancelled_total",
			Help: "Open orders cancelled by the staleness sweep",
		},
	)

	gaugePrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_price_usd",
			Help: "Last accepted reference price",
		},
	)

	gaugeCostBasis = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_cost_basis_usd",
			Help: "Weighted-average cost basis",
		},
	)

	gaugeHoldings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_holdings",
			Help: "Accumulated asset holdings",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxCycles,
		mtxDecisions,
		mtxFills,
		mtxOrdersPlaced,
		mtxOrdersCancelled,
		gaugePrice,
		gaugeCostBasis,
		gaugeHoldings,
	)
}

func IncCycle(result string)            { mtxCycles.WithLabelValues(result).Inc() }
func IncDecision(action, source string) { mtxDecisions.WithLabelValues(action, source).Inc() }
func IncFill(side string)               { mtxFills.WithLabelValues(side).Inc() }
func IncOrderPlaced(side string)        { mtxOrdersPlaced.WithLabelValues(side).Inc() }
func AddOrdersCancelled(n int)          { mtxOrdersCancelled.Add(float64(n)) }
func SetPrice(p float64)                { gaugePrice.Set(p) }
func SetCostBasis(c float64)            { gaugeCostBasis.Set(c) }
func SetHoldings(h float64)             { gaugeHoldings.Set(h) }
