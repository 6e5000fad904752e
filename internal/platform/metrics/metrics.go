package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the storefront core.
type Metrics struct {
	OrdersPlaced     prometheus.Counter
	CheckoutFailures *prometheus.CounterVec
	SessionsExpired  prometheus.Counter
	CartAdjustments  prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		OrdersPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aerostore_orders_placed_total",
			Help: "Total number of orders committed by checkout.",
		}),
		CheckoutFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aerostore_checkout_failures_total",
			Help: "Checkout failures by error code.",
		}, []string{"code"}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aerostore_sessions_expired_total",
			Help: "Sessions cleared by the lifecycle guard.",
		}),
		CartAdjustments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "aerostore_cart_adjustments_total",
			Help: "Cart quantities clamped to available stock.",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aerostore_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveCheckoutFailure records a failed checkout labelled by error code.
func (m *Metrics) ObserveCheckoutFailure(code string) {
	if m == nil {
		return
	}
	m.CheckoutFailures.WithLabelValues(code).Inc()
}

// ObserveOrderPlaced increments the committed order counter.
func (m *Metrics) ObserveOrderPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

// ObserveSessionExpired increments the expired session counter.
func (m *Metrics) ObserveSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

// ObserveCartAdjusted increments the stock-clamp counter.
func (m *Metrics) ObserveCartAdjusted() {
	if m == nil {
		return
	}
	m.CartAdjustments.Inc()
}
