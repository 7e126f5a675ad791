package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics records assignment and status-transition activity.
type DispatchMetrics struct {
	offers      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	lockWait    prometheus.Histogram
	lockTimeout prometheus.Counter
}

// NewDispatchMetrics registers dispatch metrics on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_offers_total",
		Help: "Assignment offers by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "status_transitions_total",
		Help: "Order status transitions by flow and target status.",
	}, []string{"flow", "status"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_lock_wait_seconds",
		Help:    "Time spent waiting for the per-order lock.",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
	})
	lockTimeout := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_lock_timeouts_total",
		Help: "Per-order lock acquisitions abandoned after the wait bound.",
	})
	reg.MustRegister(offers, transitions, lockWait, lockTimeout)
	return &DispatchMetrics{
		offers:      offers,
		transitions: transitions,
		lockWait:    lockWait,
		lockTimeout: lockTimeout,
	}
}

// IncOffer counts an offer outcome such as offered, accepted or rejected.
func (d *DispatchMetrics) IncOffer(outcome string) {
	if d == nil || d.offers == nil {
		return
	}
	d.offers.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition counts a committed status transition.
func (d *DispatchMetrics) IncTransition(flow, status string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(flow), normalizeLabel(status)).Inc()
}

// ObserveLockWait records how long a caller waited for the order lock.
func (d *DispatchMetrics) ObserveLockWait(wait time.Duration) {
	if d == nil || d.lockWait == nil {
		return
	}
	d.lockWait.Observe(wait.Seconds())
}

// IncLockTimeout counts a lock acquisition that hit the wait bound.
func (d *DispatchMetrics) IncLockTimeout() {
	if d == nil || d.lockTimeout == nil {
		return
	}
	d.lockTimeout.Inc()
}
