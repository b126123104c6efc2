// Package bootstrap holds the startup sequence shared by the api, cron-worker
// and outbox-publisher binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/instance"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/migrate"
	"github.com/angelmondragon/creatorhub-backend/pkg/redis"
)

// Runtime is what every binary starts from. Closers registered while opening
// dependencies run in reverse order on Close.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []func(context.Context)
}

// Load reads .env when present, parses the environment and builds the
// service logger at the configured level and format.
func Load(service string) (*Runtime, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return &Runtime{Service: service, Logger: logg}, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	return &Runtime{
		Service: service,
		Config:  cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       cfg.App.LogLevel,
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		}),
	}, nil
}

// OpenDB connects to the database and, in dev, applies pending migrations.
func (rt *Runtime) OpenDB(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.onClose("database", func(context.Context) error { return client.Close() })

	if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (rt *Runtime) OpenRedis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	rt.onClose("redis", func(context.Context) error { return client.Close() })
	return client, nil
}

// OnClose registers a shutdown step.
func (rt *Runtime) OnClose(name string, fn func(context.Context) error) {
	rt.onClose(name, fn)
}

func (rt *Runtime) onClose(name string, fn func(context.Context) error) {
	rt.closers = append(rt.closers, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			rt.Logger.Error(ctx, "error closing "+name, err)
		}
	})
}

func (rt *Runtime) Close() {
	ctx := context.Background()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i](ctx)
	}
	rt.closers = nil
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the fields
// every log line of the process should have.
func (rt *Runtime) SignalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Service,
		"instance":    instance.GetID(),
	}), stop
}

// Fatal logs err, runs the registered closers and exits.
func (rt *Runtime) Fatal(ctx context.Context, msg string, err error) {
	rt.Logger.Error(ctx, msg, err)
	rt.Close()
	os.Exit(1)
}
