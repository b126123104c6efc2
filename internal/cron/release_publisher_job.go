package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/creatorhub-backend/internal/releases"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	defaultReleaseBatchSize = 100
	maxReleaseBatches       = 20
)

type releasePublisher interface {
	PublishDue(ctx context.Context, limit int) (releases.PublishResult, error)
}

type publishedRecorder interface {
	RecordReleasesPublished(n int)
}

// ReleasePublisherJobParams wire the release publisher. Metrics is optional.
type ReleasePublisherJobParams struct {
	Logger    *logger.Logger
	Releases  releasePublisher
	Metrics   publishedRecorder
	BatchSize int
}

// NewReleasePublisherJob builds the job that flips scheduled releases whose
// release date has passed to released.
func NewReleasePublisherJob(params ReleasePublisherJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Releases == nil {
		return nil, fmt.Errorf("releases service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReleaseBatchSize
	}
	return &releasePublisherJob{
		logg:     params.Logger,
		releases: params.Releases,
		metrics:  params.Metrics,
		batch:    batch,
	}, nil
}

type releasePublisherJob struct {
	logg     *logger.Logger
	releases releasePublisher
	metrics  publishedRecorder
	batch    int
}

func (j *releasePublisherJob) Name() string { return "release-publisher" }

func (j *releasePublisherJob) Run(ctx context.Context) error {
	var total releases.PublishResult
	var errs error
	batches := 0
	for batches < maxReleaseBatches {
		batches++
		result, err := j.releases.PublishDue(ctx, j.batch)
		total.Due += result.Due
		total.Published += result.Published
		total.Skipped += result.Skipped
		errs = multierr.Append(errs, err)
		if j.metrics != nil {
			j.metrics.RecordReleasesPublished(result.Published)
		}
		// A short batch drained the backlog. A batch with no progress would
		// return the same rows again.
		if result.Due < j.batch || result.Published+result.Skipped == 0 {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batches":   batches,
		"due":       total.Due,
		"published": total.Published,
		"skipped":   total.Skipped,
	})
	if errs != nil {
		return fmt.Errorf("release publisher: %w", errs)
	}
	j.logg.Info(logCtx, "release publisher complete")
	return nil
}
