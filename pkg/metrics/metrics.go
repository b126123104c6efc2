// Package metrics holds the prometheus collectors shared by the api, the
// cron worker and the outbox publisher.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "creatorhub"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// register is MustRegister that tolerates a collector already registered by
// another constructor on the same registry, returning the existing one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
