package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records order placement outcomes and stock contention.
type CheckoutMetrics struct {
	duration       *prometheus.HistogramVec
	ordersPlaced   prometheus.Counter
	stockConflicts *prometheus.CounterVec
	persistFailure prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders committed successfully.",
	})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Checkout attempts rejected because stock ran out.",
	}, []string{"phase"})
	persistFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Cart writes that could not reach the persistence backend.",
	})
	reg.MustRegister(duration, ordersPlaced, stockConflicts, persistFailure)
	return &CheckoutMetrics{
		duration:       duration,
		ordersPlaced:   ordersPlaced,
		stockConflicts: stockConflicts,
		persistFailure: persistFailure,
	}
}

// ObserveDuration records how long a checkout attempt took for the given outcome.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncOrdersPlaced counts a committed order.
func (c *CheckoutMetrics) IncOrdersPlaced() {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.Inc()
}

// IncStockConflict counts a stock rejection in the named phase (validate or commit).
func (c *CheckoutMetrics) IncStockConflict(phase string) {
	if c == nil || c.stockConflicts == nil {
		return
	}
	c.stockConflicts.WithLabelValues(normalizeLabel(phase)).Inc()
}

// IncPersistFailure counts a failed cart persistence write.
func (c *CheckoutMetrics) IncPersistFailure() {
	if c == nil || c.persistFailure == nil {
		return
	}
	c.persistFailure.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
