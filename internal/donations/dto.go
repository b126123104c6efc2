package donations

import (
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// CheckoutInput records a donation attempt against an existing Stripe
// checkout session.
type CheckoutInput struct {
	RecipientID     types.ObjectID
	Donor           Donor
	Amount          decimal.Decimal
	Currency        string
	StripeSessionID string
	Message         string
	Metadata        map[string]any
}

// StartCheckoutInput is the request to open a checkout session and record the
// pending donation in one call.
type StartCheckoutInput struct {
	RecipientID types.ObjectID  `json:"recipient"`
	DonorID     types.ObjectID  `json:"donor"`
	DonorEmail  string          `json:"donorEmail"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Message     string          `json:"message"`
	Metadata    map[string]any  `json:"metadata"`
}

// StartCheckoutResult carries the pending donation and where to send the donor.
type StartCheckoutResult struct {
	Donation    *models.Donation `json:"donation"`
	CheckoutURL string           `json:"checkoutUrl"`
}

// ApplyResult is the donation after reconciliation plus what happened.
type ApplyResult struct {
	Donation *models.Donation `json:"donation"`
	Outcome  Outcome          `json:"outcome"`
}

// ListResult is one page of donations.
type ListResult = pagination.Page[models.Donation]

func cursorOf(d models.Donation) pagination.Cursor {
	return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
}
