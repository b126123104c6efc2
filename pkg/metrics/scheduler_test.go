package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerMetricsRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	m.RecordRun("release-publisher", 40*time.Millisecond, nil)
	m.RecordRun("release-publisher", 10*time.Millisecond, errors.New("db down"))
	m.RecordRun("", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("release-publisher", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("release-publisher", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "ok")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("release-publisher")), 0.0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	hist := findMetricFamily(mfs, "creatorhub_scheduler_job_run_seconds")
	require.NotNil(t, hist)
	var samples uint64
	for _, metric := range hist.GetMetric() {
		samples += metric.GetHistogram().GetSampleCount()
	}
	assert.EqualValues(t, 3, samples)
}

func TestSchedulerMetricsCounters(t *testing.T) {
	m := NewSchedulerMetrics(prometheus.NewRegistry())
	m.RecordSkippedCycle()
	m.RecordSkippedCycle()
	m.RecordReleasesPublished(3)
	m.RecordReleasesPublished(0)
	m.RecordReleasesPublished(-2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.released))
}

func TestSchedulerMetricsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewSchedulerMetrics(reg)
	second := NewSchedulerMetrics(reg)
	first.RecordSkippedCycle()
	second.RecordSkippedCycle()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.skipped))
}

func TestSchedulerMetricsNilSafe(t *testing.T) {
	var m *SchedulerMetrics
	m.RecordRun("job", time.Second, nil)
	m.RecordSkippedCycle()
	m.RecordReleasesPublished(1)

	empty := NewSchedulerMetrics(nil)
	empty.RecordRun("job", time.Second, errors.New("x"))
	empty.RecordReleasesPublished(1)
}
