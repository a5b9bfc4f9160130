package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StoreMetrics struct {
	CheckoutsTotal   *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	CartMutations    *prometheus.CounterVec
}

func NewStoreMetrics() *StoreMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakery",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bakery",
		Name:      "checkout_duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bakery",
		Name:      "cart_mutations_total",
		Help:      "Cart item mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	prometheus.MustRegister(checkouts, duration, mutations)
	return &StoreMetrics{
		CheckoutsTotal:   checkouts,
		CheckoutDuration: duration,
		CartMutations:    mutations,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
