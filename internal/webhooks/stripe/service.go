package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/creatorhub-backend/internal/donations"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/creatorhub-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

// DonationReconciler applies processor-neutral payment events.
type DonationReconciler interface {
	ApplyWebhook(ctx context.Context, event donations.WebhookEvent) (*donations.ApplyResult, error)
}

// SessionLookup resolves the checkout session behind a payment intent.
type SessionLookup interface {
	FindSessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*pkgstripe.CheckoutSession, error)
}

type ServiceParams struct {
	Donations DonationReconciler
	Sessions  SessionLookup
	Logger    *logger.Logger
}

type Service struct {
	donations DonationReconciler
	sessions  SessionLookup
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Donations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "donation reconciler required")
	}
	return &Service{
		donations: params.Donations,
		sessions:  params.Sessions,
		logg:      params.Logger,
	}, nil
}

// HandleEvent translates a verified Stripe event and reconciles the donation
// it refers to. Event types unrelated to donations are acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	translated, ok, err := Translate(event)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	result, err := s.donations.ApplyWebhook(ctx, translated)
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeNotFound) && translated.SessionID == "" {
		translated, err = s.retryWithSession(ctx, translated, err)
		if err == nil {
			result, err = s.donations.ApplyWebhook(ctx, translated)
		}
	}
	if err != nil {
		return err
	}

	if s.logg != nil && result != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":    event.ID,
			"event_type":  string(event.Type),
			"donation_id": result.Donation.ID.Hex(),
		})
		s.logg.Info(logCtx, fmt.Sprintf("stripe event reconciled (%s)", result.Outcome))
	}
	return nil
}

// retryWithSession fills the checkout session id from Stripe when an intent
// event arrives before the intent id was stored on the donation.
func (s *Service) retryWithSession(ctx context.Context, event donations.WebhookEvent, notFound error) (donations.WebhookEvent, error) {
	if s.sessions == nil || event.PaymentIntentID == "" {
		return event, notFound
	}
	session, err := s.sessions.FindSessionByPaymentIntent(ctx, event.PaymentIntentID)
	if err != nil {
		return event, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup checkout session")
	}
	if session == nil || session.ID == "" {
		return event, notFound
	}
	event.SessionID = session.ID
	return event, nil
}

// Translate maps a Stripe event onto a donation webhook event. ok is false
// for event types that do not affect donations.
func Translate(event *stripe.Event) (donations.WebhookEvent, bool, error) {
	out := donations.WebhookEvent{ID: event.ID}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return out, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		out.SessionID = session.ID
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}
		switch event.Type {
		case stripe.EventTypeCheckoutSessionCompleted:
			// Delayed payment methods complete the session before funds
			// arrive; the async events settle those.
			if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
				return out, false, nil
			}
			out.Kind = enums.WebhookEventCheckoutCompleted
		case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
			out.Kind = enums.WebhookEventPaymentSucceeded
		default:
			out.Kind = enums.WebhookEventPaymentFailed
		}
	case stripe.EventTypePaymentIntentSucceeded:
		// payment_intent.payment_failed is not mapped: a declined attempt
		// leaves the checkout session open for another card. Sessions fail
		// through expiry or async_payment_failed.
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return out, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		out.PaymentIntentID = intent.ID
		out.Kind = enums.WebhookEventPaymentSucceeded
		if intent.LatestCharge != nil {
			out.ChargeID = intent.LatestCharge.ID
		}
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return out, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		// Partial refunds leave the donation completed.
		if !charge.Refunded {
			return out, false, nil
		}
		out.Kind = enums.WebhookEventChargeRefunded
		out.ChargeID = charge.ID
		if charge.PaymentIntent != nil {
			out.PaymentIntentID = charge.PaymentIntent.ID
		}
	default:
		return out, false, nil
	}

	if out.SessionID == "" && out.PaymentIntentID == "" {
		return out, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stripe event %s carries no session or payment intent", event.ID))
	}
	return out, true, nil
}
