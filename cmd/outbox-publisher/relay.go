package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize    = 50
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	publishTimeout      = 15 * time.Second
	maxErrorBackoff     = 10 * time.Second
	backoffJitter       = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (serverID string, err error)
}

type eventQueue interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error
}

type deadLetters interface {
	ParkTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, attempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type relayMetrics interface {
	RecordDelivery(eventType, outcome string)
	ObserveLag(time.Duration)
	RecordFailedBatch()
}

type RelayParams struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   pubSubClient
	Queue    eventQueue
	DLQ      deadLetters
	Registry eventResolver
	Metrics  relayMetrics
	// Topics overrides PubSub.Publisher for tests.
	Topics func(topic string) topicPublisher
}

// Relay moves committed outbox rows to Pub/Sub. Each batch is locked and
// settled in one transaction: rows are marked published, counted as a
// failed attempt, or parked in the DLQ.
type Relay struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       pubSubClient
	queue        eventQueue
	dlq          deadLetters
	registry     eventResolver
	metrics      relayMetrics
	topics       func(string) topicPublisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case p.Queue == nil:
		return nil, errors.New("outbox repository is required")
	case p.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	r := &Relay{
		logg:         p.Logger,
		db:           p.DB,
		pubsub:       p.PubSub,
		queue:        p.Queue,
		dlq:          p.DLQ,
		registry:     p.Registry,
		metrics:      p.Metrics,
		topics:       p.Topics,
		batchSize:    positiveOr(p.Config.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(p.Config.MaxAttempts, defaultMaxAttempts),
		pollInterval: positiveOr(p.Config.PollInterval, defaultPollInterval),
	}
	if r.metrics == nil {
		r.metrics = metrics.NewOutboxMetrics(nil)
	}
	if r.topics == nil {
		r.topics = func(topic string) topicPublisher {
			if pub := p.PubSub.Publisher(topic); pub != nil {
				return gcpPublisher{pub}
			}
			return nil
		}
	}
	return r, nil
}

func positiveOr[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// Run relays until ctx is canceled. A full batch is followed immediately by
// the next one, an empty batch waits one poll interval and a failed batch
// backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	var failures retry.Backoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.metrics.RecordFailedBatch()
			r.logg.Error(ctx, "outbox relay batch failed", err)
			if failures == nil {
				failures = r.errorBackoff()
			}
			wait, _ = failures.Next()
		case n > 0:
			failures = nil
			continue
		default:
			failures = nil
			wait = r.pollInterval
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *Relay) errorBackoff() retry.Backoff {
	b := retry.NewExponential(r.pollInterval)
	b = retry.WithCappedDuration(maxErrorBackoff, b)
	return retry.WithJitter(backoffJitter, b)
}

// processBatch settles one locked batch and returns its size.
func (r *Relay) processBatch(ctx context.Context) (int, error) {
	var n int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.queue.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		n = len(events)
		for _, event := range events {
			if err := r.relay(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

// relay publishes one row. Publish failures are recorded on the row; only
// bookkeeping errors are returned and roll the batch back.
func (r *Relay) relay(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.Hex(),
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := r.registry.Resolve(event)
	if err != nil {
		return r.park(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Descriptor.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	err = r.publish(ctx, event, resolved)
	attempts := event.AttemptCount + 1
	switch {
	case err == nil:
		if err := r.queue.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		r.metrics.RecordDelivery(string(event.EventType), metrics.OutboxPublished)
		r.metrics.ObserveLag(time.Since(event.CreatedAt))
		r.logg.Info(ctx, "outbox event published")
		return nil
	case registry.IsNonRetryable(err):
		return r.park(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	case attempts >= r.maxAttempts:
		return r.park(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", attempts, err))
	}

	if err := r.queue.MarkFailedTx(tx, event.ID, err); err != nil {
		return fmt.Errorf("record failed attempt for %s: %w", event.ID, err)
	}
	r.metrics.RecordDelivery(string(event.EventType), metrics.OutboxRetried)
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed")
	return nil
}

func (r *Relay) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if err := r.dlq.ParkTx(tx, event, reason, cause, event.AttemptCount+1); err != nil {
		return fmt.Errorf("park %s: %w", event.ID, err)
	}
	if err := r.queue.MarkTerminalTx(tx, event.ID, cause); err != nil {
		return fmt.Errorf("retire %s: %w", event.ID, err)
	}
	r.metrics.RecordDelivery(string(event.EventType), metrics.OutboxParked)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event moved to dlq")
	return nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.topics(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: resolved.Envelope.Attributes(event),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for topic %s returned no result", topic))
	}
	_, err := result.Get(ctx)
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}
