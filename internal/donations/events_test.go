package donations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

type failingEmitter struct{}

func (failingEmitter) Emit(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("outbox unavailable")
}

func newOutboxFixture(t *testing.T, events outboxPublisher) (Service, *outbox.Repository) {
	t.Helper()
	conn := dbtest.Open(t, &models.Donation{}, &models.OutboxEvent{})
	outboxRepo := outbox.NewRepository(conn)
	if events == nil {
		events = outbox.NewService(outboxRepo, nil)
	}
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Catalog: config.CatalogConfig{DefaultCurrency: "USD"},
		Tx:      db.Wrap(conn),
		Events:  events,
	})
	require.NoError(t, err)
	return svc, outboxRepo
}

func TestAppliedTransitionsQueueDomainEvents(t *testing.T) {
	svc, outboxRepo := newOutboxFixture(t, nil)
	ctx := context.Background()

	donation, err := svc.InitiateCheckout(ctx, anonymousCheckout(types.NewObjectID(), "cs_evt"))
	require.NoError(t, err)

	completed := WebhookEvent{ID: "evt_1", Kind: enums.WebhookEventCheckoutCompleted, SessionID: "cs_evt", PaymentIntentID: "pi_evt"}
	_, err = svc.ApplyWebhook(ctx, completed)
	require.NoError(t, err)

	again, err := svc.ApplyWebhook(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, again.Outcome)

	_, err = svc.ApplyWebhook(ctx, WebhookEvent{ID: "evt_2", Kind: enums.WebhookEventChargeRefunded, PaymentIntentID: "pi_evt"})
	require.NoError(t, err)

	rows, err := outboxRepo.ListByAggregate(nil, donation.ID.Hex())
	require.NoError(t, err)
	require.Len(t, rows, 2, "re-delivery must not queue a second event")
	assert.Equal(t, enums.EventDonationCompleted, rows[0].EventType)
	assert.Equal(t, enums.EventDonationRefunded, rows[1].EventType)
	assert.Equal(t, enums.AggregateDonation, rows[0].AggregateType)

	var envelope outbox.Envelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var payload payloads.DonationStatusEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, donation.ID, payload.DonationID)
	assert.Equal(t, enums.DonationStatusPending, payload.PreviousStatus)
	assert.Equal(t, enums.DonationStatusCompleted, payload.Status)
	assert.Equal(t, "pi_evt", payload.PaymentIntentID)
	assert.Equal(t, "evt_1", payload.WebhookEventID)
	assert.True(t, payload.Amount.Equal(donation.Amount))
}

func TestIgnoredEventsQueueNothing(t *testing.T) {
	svc, outboxRepo := newOutboxFixture(t, nil)
	ctx := context.Background()

	donation, err := svc.InitiateCheckout(ctx, anonymousCheckout(types.NewObjectID(), "cs_ignored"))
	require.NoError(t, err)

	result, err := svc.ApplyWebhook(ctx, WebhookEvent{Kind: enums.WebhookEventChargeRefunded, SessionID: "cs_ignored"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)

	rows, err := outboxRepo.ListByAggregate(nil, donation.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitFailureRollsBackTransition(t *testing.T) {
	svc, _ := newOutboxFixture(t, failingEmitter{})
	ctx := context.Background()

	donation, err := svc.InitiateCheckout(ctx, anonymousCheckout(types.NewObjectID(), "cs_rollback"))
	require.NoError(t, err)

	_, err = svc.ApplyWebhook(ctx, WebhookEvent{Kind: enums.WebhookEventPaymentFailed, SessionID: "cs_rollback"})
	require.Error(t, err)

	stored, err := svc.FindByID(ctx, donation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DonationStatusPending, stored.Status)
}
