package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records outbound webhook delivery attempts and inbound
// provider event handling.
type DeliveryMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inbound  *prometheus.CounterVec
	fanout   prometheus.Histogram
}

// NewDeliveryMetrics registers delivery metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_delivery_attempts_total",
		Help: "Outbound webhook delivery attempts by event type and outcome.",
	}, []string{"event_type", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_delivery_duration_seconds",
		Help:    "Round-trip duration of outbound webhook POSTs.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"event_type"})
	inbound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inbound_events_total",
		Help: "Inbound provider events by provider and outcome.",
	}, []string{"provider", "outcome"})
	fanout := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "webhook_fanout_subscriptions",
		Help:    "Matching subscriptions per dispatched domain event.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
	})
	reg.MustRegister(attempts, latency, inbound, fanout)
	return &DeliveryMetrics{
		attempts: attempts,
		latency:  latency,
		inbound:  inbound,
		fanout:   fanout,
	}
}

// ObserveAttempt records one delivery attempt and its round-trip time.
// Outcome is "delivered", "retry" or "failed".
func (d *DeliveryMetrics) ObserveAttempt(eventType, outcome string, elapsed time.Duration) {
	if d == nil || d.attempts == nil {
		return
	}
	d.attempts.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
	d.latency.WithLabelValues(normalizeLabel(eventType)).Observe(elapsed.Seconds())
}

// IncInbound counts one handled inbound provider event. Outcome is
// "processed", "skipped" or "error".
func (d *DeliveryMetrics) IncInbound(provider, outcome string) {
	if d == nil || d.inbound == nil {
		return
	}
	d.inbound.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// ObserveFanout records how many subscriptions matched a dispatched event.
func (d *DeliveryMetrics) ObserveFanout(matched int) {
	if d == nil || d.fanout == nil {
		return
	}
	d.fanout.Observe(float64(matched))
}
