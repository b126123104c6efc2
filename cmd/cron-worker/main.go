package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/creatorhub-backend/internal/bootstrap"
	"github.com/angelmondragon/creatorhub-backend/internal/cron"
	"github.com/angelmondragon/creatorhub-backend/internal/releases"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
)

func main() {
	rt, err := bootstrap.Load("cron-worker")
	if err != nil {
		rt.Fatal(context.Background(), "failed to load config", err)
	}
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := rt.SignalContext()
	defer stop()

	dbClient, err := rt.OpenDB(ctx)
	if err != nil {
		rt.Fatal(ctx, "failed to open database", err)
	}
	redisClient, err := rt.OpenRedis(ctx)
	if err != nil {
		rt.Fatal(ctx, "failed to open redis", err)
	}

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	releaseService, err := releases.NewService(releases.ServiceParams{
		Repo:   releases.NewRepository(conn),
		Logger: logg,
		Tx:     dbClient,
		Events: outbox.NewService(outboxRepo, logg),
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create release service", err)
	}

	runMetrics := metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)
	publishReleases, err := cron.NewReleasePublisherJob(cron.ReleasePublisherJobParams{
		Logger:    logg,
		Releases:  releaseService,
		Metrics:   runMetrics,
		BatchSize: cfg.Cron.ReleaseBatchSize,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create release publisher job", err)
	}
	pruneOutbox, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:    logg,
		Outbox:    outboxRepo,
		Retention: cfg.Cron.OutboxRetention,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create outbox retention job", err)
	}
	jobs, err := cron.NewRegistry(publishReleases, pruneOutbox)
	if err != nil {
		rt.Fatal(ctx, "failed to register cron jobs", err)
	}

	locker, err := cron.NewRedisLocker(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		rt.Fatal(ctx, "failed to create cron lock", err)
	}
	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Jobs:     jobs,
		Locker:   locker,
		Metrics:  runMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create cron scheduler", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"interval":     cfg.Cron.Interval.String(),
		"jobs":         jobs.Len(),
		"metrics_addr": cfg.App.MetricsAddr,
	}), "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "cron worker stopped unexpectedly", err)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
	rt.Close()
}

// lockName scopes the scheduler lease per environment so staging and
// production workers sharing a redis do not block each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
