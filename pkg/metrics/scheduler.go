package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	runResultOK    = "ok"
	runResultError = "error"
)

// SchedulerMetrics tracks cron cycles and the jobs they run.
type SchedulerMetrics struct {
	runs        *prometheus.CounterVec
	runSeconds  *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
	released    prometheus.Counter
}

// NewSchedulerMetrics registers the scheduler collectors. A nil registerer
// yields a recorder that drops every observation.
func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	if reg == nil {
		return &SchedulerMetrics{}
	}
	return &SchedulerMetrics{
		runs: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"})),
		runSeconds: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_run_seconds",
			Help:      "Wall time of a scheduled job run.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		}, []string{"job"})),
		lastSuccess: register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished without error.",
		}, []string{"job"})),
		skipped: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because another instance held the lock.",
		})),
		released: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "releases_published_total",
			Help:      "Scheduled releases flipped to released.",
		})),
	}
}

// RecordRun observes one finished job run.
func (m *SchedulerMetrics) RecordRun(job string, elapsed time.Duration, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.runSeconds.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, runResultError).Inc()
		return
	}
	m.runs.WithLabelValues(job, runResultOK).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// RecordSkippedCycle counts a cycle lost to lock contention.
func (m *SchedulerMetrics) RecordSkippedCycle() {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.Inc()
}

// RecordReleasesPublished adds n to the published releases counter.
func (m *SchedulerMetrics) RecordReleasesPublished(n int) {
	if m == nil || m.released == nil || n <= 0 {
		return
	}
	m.released.Add(float64(n))
}
