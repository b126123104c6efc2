package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes.
const (
	OutboxPublished = "published"
	OutboxRetried   = "retried"
	OutboxParked    = "parked"
)

// OutboxMetrics tracks the outbox relay: one counter per delivery outcome and
// the delay between an event being recorded and reaching Pub/Sub.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	lag        prometheus.Histogram
	batches    prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	return &OutboxMetrics{
		deliveries: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox rows handled by the relay, by event type and outcome.",
		}, []string{"event_type", "outcome"})),
		lag: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "publish_lag_seconds",
			Help:      "Time from an event being recorded to its publish being acknowledged.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60, 300},
		})),
		batches: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failed_batches_total",
			Help:      "Relay batches rolled back because outbox bookkeeping failed.",
		})),
	}
}

func (m *OutboxMetrics) RecordDelivery(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObserveLag(lag time.Duration) {
	if m == nil || m.lag == nil || lag < 0 {
		return
	}
	m.lag.Observe(lag.Seconds())
}

func (m *OutboxMetrics) RecordFailedBatch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
