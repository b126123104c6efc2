package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/registry"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

type relayHarness struct {
	conn    *gorm.DB
	events  *outbox.Service
	dlq     *outbox.DLQRepository
	pub     *fakePublisher
	metrics *metrics.OutboxMetrics
	reg     *prometheus.Registry
	relay   *Relay
}

func newRelayHarness(t *testing.T, maxAttempts int) *relayHarness {
	t.Helper()
	conn := dbtest.Open(t, &models.OutboxEvent{}, &models.OutboxDLQ{})
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})

	events, err := registry.NewEventRegistry(config.PubSubConfig{
		DonationTopic: "donation-events",
		ReleaseTopic:  "release-events",
	})
	require.NoError(t, err)

	h := &relayHarness{
		conn: conn,
		dlq:  outbox.NewDLQRepository(conn),
		pub:  &fakePublisher{},
		reg:  prometheus.NewRegistry(),
	}
	h.metrics = metrics.NewOutboxMetrics(h.reg)
	repo := outbox.NewRepository(conn)
	h.events = outbox.NewService(repo, logg)

	h.relay, err = NewRelay(RelayParams{
		Config:   config.OutboxConfig{BatchSize: 10, MaxAttempts: maxAttempts},
		Logger:   logg,
		DB:       db.Wrap(conn),
		PubSub:   fakePubSub{},
		Queue:    repo,
		DLQ:      h.dlq,
		Registry: events,
		Metrics:  h.metrics,
		Topics: func(topic string) topicPublisher {
			h.pub.topic = topic
			return h.pub
		},
	})
	require.NoError(t, err)
	return h
}

func (h *relayHarness) emitDonation(t *testing.T, eventType enums.OutboxEventType) types.ObjectID {
	t.Helper()
	id := types.NewObjectID()
	require.NoError(t, h.events.Emit(context.Background(), h.conn, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDonation,
		AggregateID:   id,
		Data: payloads.DonationStatusEvent{
			DonationID: id,
			Status:     enums.DonationStatusCompleted,
		},
	}))
	return id
}

func (h *relayHarness) row(t *testing.T, aggregateID types.ObjectID) models.OutboxEvent {
	t.Helper()
	var row models.OutboxEvent
	require.NoError(t, h.conn.Where("aggregate_id = ?", aggregateID.Hex()).First(&row).Error)
	return row
}

func (h *relayHarness) deliveries(eventType enums.OutboxEventType, outcome string) float64 {
	families, _ := h.reg.Gather()
	for _, mf := range families {
		if mf.GetName() != "creatorhub_outbox_deliveries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["event_type"] == string(eventType) && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestProcessBatchPublishesAndMarksRows(t *testing.T) {
	h := newRelayHarness(t, 3)
	id := h.emitDonation(t, enums.EventDonationCompleted)

	n, err := h.relay.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, h.pub.messages, 1)
	msg := h.pub.messages[0]
	assert.Equal(t, "donation-events", h.pub.topic)
	assert.Equal(t, "donation_completed", msg.Attributes["event_type"])
	assert.Equal(t, id.Hex(), msg.Attributes["aggregate_id"])
	assert.NotEmpty(t, msg.Attributes["event_id"])
	assert.NotNil(t, h.row(t, id).PublishedAt)
	assert.Equal(t, 1.0, h.deliveries(enums.EventDonationCompleted, metrics.OutboxPublished))

	n, err = h.relay.processBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessBatchRecordsTransientFailure(t *testing.T) {
	h := newRelayHarness(t, 3)
	first := h.emitDonation(t, enums.EventDonationCompleted)
	second := h.emitDonation(t, enums.EventDonationFailed)
	h.pub.errs = []error{errors.New("unavailable"), nil}

	_, err := h.relay.processBatch(context.Background())
	require.NoError(t, err)

	failed := h.row(t, first)
	assert.Nil(t, failed.PublishedAt)
	assert.Equal(t, 1, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Equal(t, "unavailable", *failed.LastError)
	assert.NotNil(t, h.row(t, second).PublishedAt)
	assert.Equal(t, 1.0, h.deliveries(enums.EventDonationCompleted, metrics.OutboxRetried))
}

func TestProcessBatchParksAfterMaxAttempts(t *testing.T) {
	h := newRelayHarness(t, 2)
	id := h.emitDonation(t, enums.EventDonationRefunded)
	h.pub.errs = []error{errors.New("unavailable"), errors.New("unavailable")}

	for i := 0; i < 2; i++ {
		_, err := h.relay.processBatch(context.Background())
		require.NoError(t, err)
	}

	row := h.row(t, id)
	assert.NotNil(t, row.PublishedAt)
	assert.Equal(t, 2, row.AttemptCount)

	entry, err := h.dlq.FindByEventID(context.Background(), row.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, entry.ErrorReason)
	assert.Equal(t, 2, entry.AttemptCount)
	assert.Equal(t, 1.0, h.deliveries(enums.EventDonationRefunded, metrics.OutboxParked))
}

func TestProcessBatchParksUnresolvableRows(t *testing.T) {
	h := newRelayHarness(t, 5)
	id := types.NewObjectID()
	require.NoError(t, h.conn.Create(&models.OutboxEvent{
		EventType:     enums.EventReleasePublished,
		AggregateType: enums.AggregateRelease,
		AggregateID:   id,
		Payload:       datatypes.JSON(`{"version":1,"data":null}`),
	}).Error)

	_, err := h.relay.processBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.pub.messages)

	row := h.row(t, id)
	assert.NotNil(t, row.PublishedAt)
	entry, err := h.dlq.FindByEventID(context.Background(), row.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
}

func TestRequeuedEventIsRelayedAgain(t *testing.T) {
	h := newRelayHarness(t, 1)
	id := h.emitDonation(t, enums.EventDonationFailed)
	h.pub.errs = []error{errors.New("unavailable")}

	_, err := h.relay.processBatch(context.Background())
	require.NoError(t, err)
	parked := h.row(t, id)
	require.NotNil(t, parked.PublishedAt)

	require.NoError(t, h.dlq.Requeue(context.Background(), parked.ID))
	assert.ErrorIs(t, h.dlq.Requeue(context.Background(), parked.ID), outbox.ErrNotParked)

	requeued := h.row(t, id)
	assert.Nil(t, requeued.PublishedAt)
	assert.Zero(t, requeued.AttemptCount)

	n, err := h.relay.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, h.pub.messages, 1)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	h := newRelayHarness(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.relay.Run(ctx), context.Canceled)
}

func TestRunDrainsUntilCanceled(t *testing.T) {
	h := newRelayHarness(t, 3)
	h.emitDonation(t, enums.EventDonationCompleted)
	h.emitDonation(t, enums.EventDonationCompleted)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.relay.Run(ctx), context.DeadlineExceeded)
	assert.Len(t, h.pub.messages, 2)
}

func TestErrorBackoffStaysWithinCap(t *testing.T) {
	h := newRelayHarness(t, 3)
	b := h.relay.errorBackoff()
	for i := 0; i < 20; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, maxErrorBackoff+backoffJitter)
	}
}

func TestNewRelayValidatesAndDefaults(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	assert.Error(t, err)

	h := newRelayHarness(t, 0)
	assert.Equal(t, defaultMaxAttempts, h.relay.maxAttempts)
	assert.Equal(t, defaultPollInterval, h.relay.pollInterval)
	assert.Equal(t, 10, h.relay.batchSize)
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error            { return nil }
func (fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	topic    string
	messages []*gcppubsub.Message
	errs     []error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	var err error
	if len(p.errs) > 0 {
		err, p.errs = p.errs[0], p.errs[1:]
	}
	if err == nil {
		p.messages = append(p.messages, msg)
	}
	return fakeResult{err: err}
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}
