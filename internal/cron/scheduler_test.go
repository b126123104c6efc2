package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

type stubLocker struct {
	held     bool
	err      error
	released int
}

func (s *stubLocker) TryLock(context.Context) (Lease, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.held {
		return nil, nil
	}
	s.held = true
	return s, nil
}

func (s *stubLocker) Release(context.Context) error {
	s.held = false
	s.released++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

type recordedRun struct {
	job string
	err error
}

type stubRecorder struct {
	runs    []recordedRun
	skipped int
}

func (s *stubRecorder) RecordRun(job string, _ time.Duration, err error) {
	s.runs = append(s.runs, recordedRun{job: job, err: err})
}

func (s *stubRecorder) RecordSkippedCycle() { s.skipped++ }

func newTestScheduler(t *testing.T, locker Locker, recorder runRecorder, jobs ...Job) *Scheduler {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	scheduler, err := NewScheduler(SchedulerParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Jobs:    registry,
		Locker:  locker,
		Metrics: recorder,
	})
	require.NoError(t, err)
	return scheduler
}

func TestCycleRunsEveryJobPastFailures(t *testing.T) {
	failing := &countingJob{name: "flaky", err: errors.New("boom")}
	healthy := &countingJob{name: "release-publisher"}
	locker := &stubLocker{}
	recorder := &stubRecorder{}
	scheduler := newTestScheduler(t, locker, recorder, failing, healthy)

	report, err := scheduler.Cycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, healthy.runs)
	assert.Equal(t, CycleReport{Ran: 2, Failed: []string{"flaky"}}, report)
	assert.Equal(t, 1, locker.released)
	require.Len(t, recorder.runs, 2)
	assert.Error(t, recorder.runs[0].err)
	assert.NoError(t, recorder.runs[1].err)
}

func TestCycleSkipsWhenLeaseHeld(t *testing.T) {
	job := &countingJob{name: "release-publisher"}
	recorder := &stubRecorder{}
	scheduler := newTestScheduler(t, &stubLocker{held: true}, recorder, job)

	report, err := scheduler.Cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, job.runs)
	assert.Equal(t, 1, recorder.skipped)
}

func TestCycleSurfacesLockErrors(t *testing.T) {
	job := &countingJob{name: "release-publisher"}
	scheduler := newTestScheduler(t, &stubLocker{err: errors.New("redis down")}, nil, job)

	_, err := scheduler.Cycle(context.Background())
	assert.ErrorContains(t, err, "redis down")
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "release-publisher"}
	scheduler := newTestScheduler(t, &stubLocker{}, nil, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := scheduler.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, job.runs)
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := NewScheduler(SchedulerParams{Locker: &stubLocker{}})
	assert.Error(t, err)
	_, err = NewScheduler(SchedulerParams{Logger: logger.New(logger.Options{})})
	assert.Error(t, err)

	scheduler, err := NewScheduler(SchedulerParams{Logger: logger.New(logger.Options{}), Locker: &stubLocker{}})
	require.NoError(t, err)
	assert.Equal(t, defaultCycleInterval, scheduler.interval)
	assert.Zero(t, scheduler.jobs.Len())
}
