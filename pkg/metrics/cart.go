package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess   = "success"
	OutcomeEmptyCart = "empty_cart"
	OutcomeNotFound  = "not_found"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
	OutcomeMerged    = "merged"
	OutcomeSkipped   = "skipped"
)

// CartMetrics covers checkout outcomes and guest-cart merge results.
type CartMetrics struct {
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	mergeLines       *prometheus.CounterVec
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of the checkout transaction in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	mergeLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_merge_lines_total",
		Help: "Guest cart lines processed during merge by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkouts, checkoutDuration, mergeLines)
	return &CartMetrics{
		checkouts:        checkouts,
		checkoutDuration: checkoutDuration,
		mergeLines:       mergeLines,
	}
}

func (c *CartMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
	c.checkoutDuration.Observe(duration.Seconds())
}

func (c *CartMetrics) AddMergeLines(outcome string, n int) {
	if c == nil || c.mergeLines == nil || n <= 0 {
		return
	}
	c.mergeLines.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}
