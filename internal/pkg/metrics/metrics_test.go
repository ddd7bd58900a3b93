package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStoreCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OrderPlaced(true)
	m.OrderPlaced(true)
	m.OrderPlaced(false)
	m.OrderFailed("EMPTY_CART")
	m.PromoEvaluated("")
	m.CartMutated("add_line")
	m.ObserveHTTP("GET", "/api/v1/cart", 200, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersPlaced.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderFailures.WithLabelValues("EMPTY_CART")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.promoRedemptions.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("add_line")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestNilStoreIsNoop(t *testing.T) {
	var m *Store
	assert.NotPanics(t, func() {
		m.OrderPlaced(true)
		m.OrderFailed("x")
		m.PromoEvaluated("x")
		m.CartMutated("x")
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})

	unregistered := New(nil)
	assert.NotPanics(t, func() { unregistered.OrderPlaced(false) })
}
