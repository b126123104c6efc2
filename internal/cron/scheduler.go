package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

const defaultCycleInterval = time.Minute

type runRecorder interface {
	RecordRun(job string, elapsed time.Duration, err error)
	RecordSkippedCycle()
}

// SchedulerParams wire a Scheduler. Metrics is optional.
type SchedulerParams struct {
	Logger   *logger.Logger
	Jobs     *Registry
	Locker   Locker
	Metrics  runRecorder
	Interval time.Duration
}

// Scheduler runs every registered job once per interval while holding the
// cluster lease. A failing job does not stop the jobs after it.
type Scheduler struct {
	logg     *logger.Logger
	jobs     *Registry
	locker   Locker
	metrics  runRecorder
	interval time.Duration
	now      func() time.Time
}

// CycleReport summarises one pass over the registry.
type CycleReport struct {
	Skipped bool
	Ran     int
	Failed  []string
}

// NewScheduler validates params and applies defaults.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Locker == nil {
		return nil, errors.New("locker required")
	}
	jobs := params.Jobs
	if jobs == nil {
		jobs, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultCycleInterval
	}
	return &Scheduler{
		logg:     params.Logger,
		jobs:     jobs,
		locker:   params.Locker,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "jobs", s.jobs.Len())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Cycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle aborted", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle takes the lease and runs each job in order. It only errors when the
// lease itself cannot be read.
func (s *Scheduler) Cycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	lease, err := s.locker.TryLock(ctx)
	if err != nil {
		return report, err
	}
	if lease == nil {
		report.Skipped = true
		if s.metrics != nil {
			s.metrics.RecordSkippedCycle()
		}
		s.logg.Info(ctx, "cron lease held elsewhere, skipping cycle")
		return report, nil
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lease release failed", err)
		}
	}()

	for _, job := range s.jobs.Jobs() {
		if ctx.Err() != nil {
			break
		}
		report.Ran++
		if err := s.runJob(ctx, job); err != nil {
			report.Failed = append(report.Failed, job.Name())
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"ran":    report.Ran,
		"failed": len(report.Failed),
	}), "cron cycle finished")
	return report, nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	started := s.now()
	err := job.Run(ctx)
	elapsed := s.now().Sub(started)
	if s.metrics != nil {
		s.metrics.RecordRun(job.Name(), elapsed, err)
	}

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Info(ctx, "cron job done")
	return nil
}
