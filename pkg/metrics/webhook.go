package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts donation reconciliation outcomes per event kind.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "donations",
		Name:      "webhook_outcomes_total",
		Help:      "Donation webhook reconciliations by event kind and outcome.",
	}, []string{"kind", "outcome"})
	return &WebhookMetrics{outcomes: register(reg, outcomes)}
}

// RecordWebhookOutcome increments the counter for kind and outcome.
func (w *WebhookMetrics) RecordWebhookOutcome(kind, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
