package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pharmacy domain counters.
type Metrics struct {
	OrdersPlaced     prometheus.Counter
	SkippedLines     prometheus.Counter
	StockDepletions  prometheus.Counter
	DiscountsApplied *prometheus.CounterVec
	RestocksReceived prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_orders_placed_total",
			Help: "Total number of committed checkouts",
		}),
		SkippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_checkout_skipped_lines_total",
			Help: "Checkout lines whose medicine id was not in the catalog",
		}),
		StockDepletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_stock_depletions_total",
			Help: "Sales that took a medicine to zero units",
		}),
		DiscountsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pharmacy_discounts_applied_total",
			Help: "Discounts applied to medicines, by mode",
		}, []string{"mode"}),
		RestocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pharmacy_restocks_received_total",
			Help: "Restock requests received into stock",
		}),
	}
	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.OrdersPlaced, m.SkippedLines, m.StockDepletions, m.DiscountsApplied, m.RestocksReceived,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pharmacy metrics: %w", err)
		}
	}
	return m, nil
}
