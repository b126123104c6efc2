package main

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/creatorhub-backend/internal/bootstrap"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/registry"
	"github.com/angelmondragon/creatorhub-backend/pkg/pubsub"
)

func main() {
	rt, err := bootstrap.Load("outbox-publisher")
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
	conn := dbClient.DB()
	dlq := outbox.NewDLQRepository(conn)

	if len(os.Args) > 1 {
		if os.Args[1] != "dlq" {
			rt.Fatal(ctx, "unknown command", errors.New(dlqUsage))
		}
		if err := runDLQ(ctx, dlq, os.Args[2:], os.Stdout); err != nil {
			rt.Fatal(ctx, "dlq command failed", err)
		}
		rt.Close()
		return
	}

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		rt.Fatal(ctx, "failed to build event registry", err)
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, events.Topics(), logg)
	if err != nil {
		rt.Fatal(ctx, "failed to bootstrap pubsub", err)
	}
	rt.OnClose("pubsub", func(context.Context) error { return pubsubClient.Close() })

	relay, err := NewRelay(RelayParams{
		Config:   cfg.Outbox,
		Logger:   logg,
		DB:       dbClient,
		PubSub:   pubsubClient,
		Queue:    outbox.NewRepository(conn),
		DLQ:      dlq,
		Registry: events,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create outbox relay", err)
	}

	logg.Info(logg.WithField(ctx, "metrics_addr", cfg.App.MetricsAddr), "starting outbox publisher")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, cfg.App.MetricsAddr, prometheus.DefaultGatherer) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fatal(ctx, "outbox publisher stopped unexpectedly", err)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
	rt.Close()
}
