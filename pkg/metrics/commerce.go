package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Commerce counts marketplace business outcomes.
type Commerce struct {
	ordersCreated    prometheus.Counter
	checkouts        prometheus.Counter
	transitions      *prometheus.CounterVec
	stockConflicts   prometheus.Counter
	orderNumberRetry prometheus.Counter
	reviews          *prometheus.CounterVec
}

// NewCommerce registers the business counters on reg.
func NewCommerce(reg prometheus.Registerer) *Commerce {
	if reg == nil {
		return &Commerce{}
	}
	c := &Commerce{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Supplier orders created by checkout.",
		}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Successful checkouts.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions applied.",
		}, []string{"from", "to"}),
		stockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_conflicts_total",
			Help:      "Checkouts rejected because a conditional stock decrement matched no row.",
		}),
		orderNumberRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_number_collisions_total",
			Help:      "Order number unique violations that triggered a retry.",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_created_total",
			Help:      "Reviews created by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.ordersCreated, c.checkouts, c.transitions, c.stockConflicts, c.orderNumberRetry, c.reviews)
	return c
}

// ObserveCheckout records one checkout that produced n orders.
func (c *Commerce) ObserveCheckout(n int) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.Inc()
	c.ordersCreated.Add(float64(n))
}

func (c *Commerce) ObserveTransition(from, to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (c *Commerce) IncStockConflict() {
	if c == nil || c.stockConflicts == nil {
		return
	}
	c.stockConflicts.Inc()
}

func (c *Commerce) IncOrderNumberCollision() {
	if c == nil || c.orderNumberRetry == nil {
		return
	}
	c.orderNumberRetry.Inc()
}

func (c *Commerce) IncReview(kind string) {
	if c == nil || c.reviews == nil {
		return
	}
	c.reviews.WithLabelValues(normalizeLabel(kind)).Inc()
}
