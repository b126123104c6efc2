package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/creatorhub-backend/api/routes"
	"github.com/angelmondragon/creatorhub-backend/internal/bootstrap"
	"github.com/angelmondragon/creatorhub-backend/internal/donations"
	"github.com/angelmondragon/creatorhub-backend/internal/photos"
	"github.com/angelmondragon/creatorhub-backend/internal/releases"
	"github.com/angelmondragon/creatorhub-backend/internal/scripts"
	stripewebhook "github.com/angelmondragon/creatorhub-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	rt, err := bootstrap.Load("api")
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
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		rt.Fatal(ctx, "failed to bootstrap stripe", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conn := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	releaseService, err := releases.NewService(releases.ServiceParams{
		Repo:   releases.NewRepository(conn),
		Logger: logg,
		Tx:     dbClient,
		Events: events,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create release service", err)
	}
	scriptService, err := scripts.NewService(scripts.NewRepository(conn), logg)
	if err != nil {
		rt.Fatal(ctx, "failed to create script service", err)
	}
	photoService, err := photos.NewService(photos.NewRepository(conn), logg)
	if err != nil {
		rt.Fatal(ctx, "failed to create photo service", err)
	}
	donationService, err := donations.NewService(donations.ServiceParams{
		Repo:     donations.NewRepository(conn),
		Checkout: stripeClient,
		Metrics:  metrics.NewWebhookMetrics(registry),
		Logger:   logg,
		Catalog:  cfg.Catalog,
		Stripe:   cfg.Stripe,
		Tx:       dbClient,
		Events:   events,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create donation service", err)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Donations: donationService,
		Sessions:  stripeClient,
		Logger:    logg,
	})
	if err != nil {
		rt.Fatal(ctx, "failed to create stripe webhook service", err)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		rt.Fatal(ctx, "failed to create stripe webhook guard", err)
	}

	addr := ":" + listenPort(cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Gatherer:       registry,
			HTTP:           metrics.NewHTTPMetrics(registry),
			Releases:       releaseService,
			Scripts:        scriptService,
			Photos:         photoService,
			Donations:      donationService,
			StripeSigner:   stripeClient,
			StripeWebhooks: webhookService,
			WebhookGuard:   webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	}), "starting api server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		rt.Fatal(ctx, "api server stopped unexpectedly", err)
	}

	logg.Info(ctx, "api server shut down gracefully")
	rt.Close()
}

// listenPort prefers the platform-assigned PORT over configuration.
func listenPort(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return configured
}
