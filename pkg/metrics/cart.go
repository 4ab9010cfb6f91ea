package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records persistence outcomes for the in-memory cart engines.
type CartMetrics struct {
	flushSuccess     prometheus.Counter
	flushFailure     prometheus.Counter
	hydrationFailure prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	flushSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_flush_success",
		Help: "Cart snapshots written back to storage.",
	})
	flushFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_flush_failure",
		Help: "Cart snapshot writes that failed.",
	})
	hydrationFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_hydration_failure",
		Help: "Cart snapshot loads that failed at session start.",
	})
	reg.MustRegister(flushSuccess, flushFailure, hydrationFailure)
	return &CartMetrics{
		flushSuccess:     flushSuccess,
		flushFailure:     flushFailure,
		hydrationFailure: hydrationFailure,
	}
}

// IncFlushSuccess increments the successful flush counter.
func (c *CartMetrics) IncFlushSuccess() {
	if c == nil || c.flushSuccess == nil {
		return
	}
	c.flushSuccess.Inc()
}

// IncFlushFailure increments the failed flush counter.
func (c *CartMetrics) IncFlushFailure() {
	if c == nil || c.flushFailure == nil {
		return
	}
	c.flushFailure.Inc()
}

// IncHydrationFailure increments the failed hydration counter.
func (c *CartMetrics) IncHydrationFailure() {
	if c == nil || c.hydrationFailure == nil {
		return
	}
	c.hydrationFailure.Inc()
}
