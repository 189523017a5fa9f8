package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks the storefront purchase funnel.
type CheckoutMetrics struct {
	ordersPlaced   prometheus.Counter
	ordersFailed   prometheus.Counter
	intentsCreated prometheus.Counter
}

// NewCheckoutMetrics registers the funnel counters on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders persisted successfully.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order submissions that failed after payment.",
	})
	intentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Payment intents requested from the gateway.",
	})
	reg.MustRegister(ordersPlaced, ordersFailed, intentsCreated)
	return &CheckoutMetrics{
		ordersPlaced:   ordersPlaced,
		ordersFailed:   ordersFailed,
		intentsCreated: intentsCreated,
	}
}

func (c *CheckoutMetrics) IncOrderPlaced() {
	if c == nil || c.ordersPlaced == nil {
		return
	}
	c.ordersPlaced.Inc()
}

func (c *CheckoutMetrics) IncOrderFailed() {
	if c == nil || c.ordersFailed == nil {
		return
	}
	c.ordersFailed.Inc()
}

func (c *CheckoutMetrics) IncIntentCreated() {
	if c == nil || c.intentsCreated == nil {
		return
	}
	c.intentsCreated.Inc()
}
