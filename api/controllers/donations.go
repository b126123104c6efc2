package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/creatorhub-backend/api/middleware"
	"github.com/angelmondragon/creatorhub-backend/api/responses"
	"github.com/angelmondragon/creatorhub-backend/api/validators"
	"github.com/angelmondragon/creatorhub-backend/internal/donations"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/shopspring/decimal"
)

type checkoutRequest struct {
	RecipientID types.ObjectID  `json:"recipient"`
	DonorEmail  string          `json:"donorEmail" validate:"omitempty,email"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Message     string          `json:"message"`
	Metadata    map[string]any  `json:"metadata"`
}

// DonationCheckout opens a Stripe checkout session for a donation. Signed-in
// callers donate as themselves; anonymous callers must give an email.
func DonationCheckout(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donation service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartCheckout(r.Context(), donations.StartCheckoutInput{
			RecipientID: payload.RecipientID,
			DonorID:     middleware.UserIDFromContext(r.Context()),
			DonorEmail:  payload.DonorEmail,
			Amount:      payload.Amount,
			Currency:    payload.Currency,
			Message:     payload.Message,
			Metadata:    payload.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithDonationID(r.Context(), result.Donation.ID.Hex())
			logg.Info(ctx, "donation checkout opened")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// DonationGet returns a donation to its donor or recipient.
func DonationGet(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseObjectIDParam(r, "donationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		donation, err := svc.FindForParticipant(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

// DonationsSent is the caller's donation history as a donor.
func DonationsSent(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return donationHistory(logg, func(ctx context.Context, actor types.ObjectID, params pagination.Params) (*donations.ListResult, error) {
		return svc.ListByDonor(ctx, actor, params)
	})
}

// DonationsReceived is the caller's donation history as a recipient.
func DonationsReceived(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return donationHistory(logg, func(ctx context.Context, actor types.ObjectID, params pagination.Params) (*donations.ListResult, error) {
		return svc.ListByRecipient(ctx, actor, params)
	})
}

func donationHistory(logg *logger.Logger, list func(context.Context, types.ObjectID, pagination.Params) (*donations.ListResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := list(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
