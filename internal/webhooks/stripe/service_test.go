package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/angelmondragon/creatorhub-backend/internal/donations"
	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/creatorhub-backend/pkg/stripe"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

func TestTranslateCheckoutSessionEvents(t *testing.T) {
	cases := []struct {
		eventType stripe.EventType
		status    stripe.CheckoutSessionPaymentStatus
		kind      enums.WebhookEventKind
		ok        bool
	}{
		{stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSessionPaymentStatusPaid, enums.WebhookEventCheckoutCompleted, true},
		{stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSessionPaymentStatusUnpaid, "", false},
		{stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded, stripe.CheckoutSessionPaymentStatusPaid, enums.WebhookEventPaymentSucceeded, true},
		{stripe.EventTypeCheckoutSessionAsyncPaymentFailed, stripe.CheckoutSessionPaymentStatusUnpaid, enums.WebhookEventPaymentFailed, true},
		{stripe.EventTypeCheckoutSessionExpired, stripe.CheckoutSessionPaymentStatusUnpaid, enums.WebhookEventPaymentFailed, true},
	}

	for _, tc := range cases {
		t.Run(string(tc.eventType)+"/"+string(tc.status), func(t *testing.T) {
			event := buildEvent(t, tc.eventType, &stripe.CheckoutSession{
				ID:            "cs_1",
				PaymentStatus: tc.status,
				PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
			})
			got, ok, err := Translate(event)
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if got.Kind != tc.kind || got.SessionID != "cs_1" || got.PaymentIntentID != "pi_1" {
				t.Fatalf("unexpected translation %+v", got)
			}
			if got.ID != event.ID {
				t.Fatalf("expected event id carried, got %q", got.ID)
			}
		})
	}
}

func TestTranslatePaymentIntentEvents(t *testing.T) {
	succeeded := buildEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{
		ID:           "pi_2",
		LatestCharge: &stripe.Charge{ID: "ch_2"},
	})
	got, ok, err := Translate(succeeded)
	if err != nil || !ok {
		t.Fatalf("translate succeeded: ok=%v err=%v", ok, err)
	}
	if got.Kind != enums.WebhookEventPaymentSucceeded || got.PaymentIntentID != "pi_2" || got.ChargeID != "ch_2" {
		t.Fatalf("unexpected translation %+v", got)
	}

	declined := buildEvent(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{ID: "pi_3"})
	if _, ok, err := Translate(declined); ok || err != nil {
		t.Fatalf("declined attempt should be skipped: ok=%v err=%v", ok, err)
	}
}

func TestTranslateChargeRefunded(t *testing.T) {
	full := buildEvent(t, stripe.EventTypeChargeRefunded, &stripe.Charge{
		ID:            "ch_4",
		Refunded:      true,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_4"},
	})
	got, ok, err := Translate(full)
	if err != nil || !ok {
		t.Fatalf("translate refund: ok=%v err=%v", ok, err)
	}
	if got.Kind != enums.WebhookEventChargeRefunded || got.PaymentIntentID != "pi_4" {
		t.Fatalf("unexpected translation %+v", got)
	}

	partial := buildEvent(t, stripe.EventTypeChargeRefunded, &stripe.Charge{
		ID:            "ch_5",
		Refunded:      false,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_5"},
	})
	if _, ok, err := Translate(partial); ok || err != nil {
		t.Fatalf("partial refund should be skipped: ok=%v err=%v", ok, err)
	}

	orphan := buildEvent(t, stripe.EventTypeChargeRefunded, &stripe.Charge{ID: "ch_6", Refunded: true})
	if _, _, err := Translate(orphan); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for charge without intent, got %v", err)
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	reconciler := &stubReconciler{}
	service, err := NewService(ServiceParams{Donations: reconciler})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	event := buildEvent(t, stripe.EventTypeCustomerSubscriptionCreated, &stripe.Subscription{ID: "sub_1"})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(reconciler.events) != 0 {
		t.Fatalf("reconciler should not be called, got %d calls", len(reconciler.events))
	}
}

func TestHandleEventAppliesDonationEvent(t *testing.T) {
	reconciler := &stubReconciler{}
	service, err := NewService(ServiceParams{Donations: reconciler})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	event := buildEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		ID:            "cs_7",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_7"},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(reconciler.events) != 1 || reconciler.events[0].SessionID != "cs_7" {
		t.Fatalf("unexpected reconciler calls %+v", reconciler.events)
	}
}

func TestHandleEventResolvesSessionForUnknownIntent(t *testing.T) {
	reconciler := &stubReconciler{knownSessions: map[string]bool{"cs_8": true}}
	sessions := &stubSessions{byIntent: map[string]string{"pi_8": "cs_8"}}
	service, err := NewService(ServiceParams{Donations: reconciler, Sessions: sessions})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	event := buildEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_8"})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(reconciler.events) != 2 {
		t.Fatalf("expected retry after session lookup, got %d calls", len(reconciler.events))
	}
	if reconciler.events[1].SessionID != "cs_8" || reconciler.events[1].PaymentIntentID != "pi_8" {
		t.Fatalf("retry should carry the session id, got %+v", reconciler.events[1])
	}
}

func TestHandleEventSurfacesNotFoundWithoutLookup(t *testing.T) {
	reconciler := &stubReconciler{}
	service, err := NewService(ServiceParams{Donations: reconciler})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	event := buildEvent(t, stripe.EventTypePaymentIntentSucceeded, &stripe.PaymentIntent{ID: "pi_9"})
	err = service.HandleEvent(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeclinedAttemptLeavesDonationPayable(t *testing.T) {
	ctx := context.Background()
	donationService, err := donations.NewService(donations.ServiceParams{
		Repo:    donations.NewRepository(dbtest.Open(t, &models.Donation{})),
		Catalog: config.CatalogConfig{DefaultCurrency: "USD"},
	})
	if err != nil {
		t.Fatalf("setup donations: %v", err)
	}
	created, err := donationService.InitiateCheckout(ctx, donations.CheckoutInput{
		RecipientID:     types.NewObjectID(),
		Donor:           donations.AnonymousDonor{Email: "fan@example.com"},
		Amount:          decimal.NewFromInt(25),
		Currency:        "USD",
		StripeSessionID: "cs_9",
	})
	if err != nil {
		t.Fatalf("initiate checkout: %v", err)
	}

	service, err := NewService(ServiceParams{
		Donations: donationService,
		Sessions:  &stubSessions{byIntent: map[string]string{"pi_9": "cs_9"}},
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	declined := buildEvent(t, stripe.EventTypePaymentIntentPaymentFailed, &stripe.PaymentIntent{ID: "pi_9"})
	if err := service.HandleEvent(ctx, declined); err != nil {
		t.Fatalf("handle declined attempt: %v", err)
	}
	paid := buildEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		ID:            "cs_9",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_9"},
	})
	if err := service.HandleEvent(ctx, paid); err != nil {
		t.Fatalf("handle paid session: %v", err)
	}

	stored, err := donationService.FindBySessionID(ctx, "cs_9")
	if err != nil {
		t.Fatalf("reload donation: %v", err)
	}
	if stored.ID != created.ID || stored.Status != enums.DonationStatusCompleted {
		t.Fatalf("expected completed donation %s, got %s (%s)", created.ID.Hex(), stored.ID.Hex(), stored.Status)
	}
}

func TestNewServiceRequiresReconciler(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error without reconciler")
	}
}

func buildEvent(t *testing.T, eventType stripe.EventType, object any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal object: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + string(eventType),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

type stubReconciler struct {
	events        []donations.WebhookEvent
	knownSessions map[string]bool
}

func (s *stubReconciler) ApplyWebhook(ctx context.Context, event donations.WebhookEvent) (*donations.ApplyResult, error) {
	s.events = append(s.events, event)
	if event.SessionID == "" || (s.knownSessions != nil && !s.knownSessions[event.SessionID]) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
	}
	return &donations.ApplyResult{
		Donation: &models.Donation{ID: types.NewObjectID(), StripeSessionID: event.SessionID},
		Outcome:  donations.OutcomeApplied,
	}, nil
}

type stubSessions struct {
	byIntent map[string]string
}

func (s *stubSessions) FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*pkgstripe.CheckoutSession, error) {
	id, ok := s.byIntent[paymentIntentID]
	if !ok {
		return nil, nil
	}
	return &pkgstripe.CheckoutSession{ID: id, PaymentIntentID: paymentIntentID}, nil
}
