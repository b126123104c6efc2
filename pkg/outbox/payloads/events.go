package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// DonationStatusEvent is emitted whenever a webhook moves a donation to a
// terminal or refunded state.
type DonationStatusEvent struct {
	DonationID      types.ObjectID       `json:"donation_id"`
	DonorID         types.ObjectID       `json:"donor_id"`
	RecipientID     types.ObjectID       `json:"recipient_id"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        string               `json:"currency"`
	PreviousStatus  enums.DonationStatus `json:"previous_status"`
	Status          enums.DonationStatus `json:"status"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
	WebhookEventID  string               `json:"webhook_event_id,omitempty"`
}

// ReleasePublishedEvent is emitted when a scheduled release goes live.
type ReleasePublishedEvent struct {
	ReleaseID   types.ObjectID `json:"release_id"`
	CreatorID   types.ObjectID `json:"creator_id"`
	Name        string         `json:"name"`
	ReleaseDate time.Time      `json:"release_date"`
	PublishedAt time.Time      `json:"published_at"`
}
