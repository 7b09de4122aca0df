// Package metrics holds the Prometheus collectors shared by the rotator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts daily cycles by mode and outcome label.
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rebalance_cycles_total", Help: "Daily rebalance cycles by mode and outcome"},
		[]string{"mode", "outcome"},
	)
	// OrdersTotal counts orders applied to an account.
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders applied to an account"},
		[]string{"symbol", "side"},
	)
	// DataGapsTotal counts price points missing at their expected instant.
	DataGapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "market_data_gaps_total", Help: "Price points missing at the expected instant"},
		[]string{"symbol"},
	)
	// BrokerRequestsTotal counts broker REST calls by endpoint and status class.
	BrokerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "broker_requests_total", Help: "Broker REST calls by endpoint and status class"},
		[]string{"endpoint", "status"},
	)
	// Direction is the latest buy/sell marker.
	Direction = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "trade_direction", Help: "Latest buy/sell marker (-1, 0, 1)"},
	)
	// LiquidationValue is the account liquidation value after the latest cycle.
	LiquidationValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "liquidation_value", Help: "Account liquidation value after the latest cycle"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersTotal, DataGapsTotal, BrokerRequestsTotal, Direction, LiquidationValue)
}

// Serve exposes /metrics on addr in the background. The caller owns shutdown.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
