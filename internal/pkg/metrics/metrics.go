// internal/pkg/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store records business and transport metrics for the storefront.
// A nil *Store is valid and records nothing.
type Store struct {
	ordersPlaced     *prometheus.CounterVec
	orderFailures    *prometheus.CounterVec
	promoRedemptions *prometheus.CounterVec
	cartMutations    *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the storefront metrics on the provided registerer
func New(reg prometheus.Registerer) *Store {
	if reg == nil {
		return &Store{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders created from carts.",
	}, []string{"promo"})
	orderFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_failures_total",
		Help: "Order placements rejected or rolled back, by error code.",
	}, []string{"code"})
	promoRedemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_promo_redemptions_total",
		Help: "Promo code evaluations, by outcome.",
	}, []string{"outcome"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations, by operation.",
	}, []string{"op"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	reg.MustRegister(ordersPlaced, orderFailures, promoRedemptions, cartMutations, httpDuration)
	return &Store{
		ordersPlaced:     ordersPlaced,
		orderFailures:    orderFailures,
		promoRedemptions: promoRedemptions,
		cartMutations:    cartMutations,
		httpDuration:     httpDuration,
	}
}

// OrderPlaced counts a committed order
func (s *Store) OrderPlaced(withPromo bool) {
	if s == nil || s.ordersPlaced == nil {
		return
	}
	s.ordersPlaced.WithLabelValues(strconv.FormatBool(withPromo)).Inc()
}

// OrderFailed counts a failed placement by error code
func (s *Store) OrderFailed(code string) {
	if s == nil || s.orderFailures == nil {
		return
	}
	s.orderFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// PromoEvaluated counts a promo outcome such as "redeemed", "previewed" or a rejection reason
func (s *Store) PromoEvaluated(outcome string) {
	if s == nil || s.promoRedemptions == nil {
		return
	}
	s.promoRedemptions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// CartMutated counts a cart operation
func (s *Store) CartMutated(op string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveHTTP records the latency of a finished request
func (s *Store) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if s == nil || s.httpDuration == nil {
		return
	}
	s.httpDuration.WithLabelValues(method, normalizeLabel(route), strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
