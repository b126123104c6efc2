package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/creatorhub-backend/api/responses"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBytes       = 64 << 10
)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// StripeEventGuard claims event ids so redeliveries are acknowledged without
// being handled twice.
type StripeEventGuard interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type StripeSigner interface {
	SigningSecret() string
}

// StripeWebhook verifies a Stripe delivery and hands it to the donation
// reconciler. A handling error releases the claim and returns a non-2xx
// status so Stripe retries the delivery.
func StripeWebhook(svc StripeWebhookService, signer StripeSigner, guard StripeEventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || signer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhooks are not configured"))
			return
		}

		event, err := verifyStripeEvent(w, r, signer.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
			if event.APIVersion != "" && event.APIVersion != stripe.APIVersion {
				logg.Warn(logg.WithField(ctx, "event_api_version", event.APIVersion), "stripe event api version differs from client")
			}
		}

		if guard != nil {
			first, err := guard.Claim(ctx, event.ID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event"))
				return
			}
			if !first {
				if logg != nil {
					logg.Info(ctx, "stripe event redelivered, skipping")
				}
				acknowledge(w)
				return
			}
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if guard != nil {
				if relErr := guard.Release(context.WithoutCancel(ctx), event.ID); relErr != nil && logg != nil {
					logg.Error(ctx, "release stripe event claim", relErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		acknowledge(w)
	}
}

// verifyStripeEvent reads the bounded body and checks its signature. Events
// from another API version are accepted since only ids and statuses are read
// from them.
func verifyStripeEvent(w http.ResponseWriter, r *http.Request, secret string) (*stripe.Event, error) {
	sig := r.Header.Get(stripeSignatureHeader)
	if sig == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body")
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify stripe signature")
	}
	return &event, nil
}

func acknowledge(w http.ResponseWriter) {
	responses.WriteSuccess(w, map[string]bool{"received": true})
}
