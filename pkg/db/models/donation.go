package models

import (
	"strings"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Donation is a transfer from a donor, possibly anonymous, to a recipient,
// brokered by a Stripe checkout session.
type Donation struct {
	ID                    types.ObjectID       `gorm:"column:id;primaryKey" json:"id"`
	DonorID               types.ObjectID       `gorm:"column:donor;index:idx_donations_donor_created,priority:1" json:"donor"`
	DonorEmail            *string              `gorm:"column:donor_email" json:"donorEmail,omitempty"`
	RecipientID           types.ObjectID       `gorm:"column:recipient;not null;index:idx_donations_recipient_created,priority:1" json:"recipient"`
	Amount                decimal.Decimal      `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Currency              string               `gorm:"column:currency;type:char(3);not null;default:'USD'" json:"currency"`
	StripeSessionID       string               `gorm:"column:stripe_session_id;not null;uniqueIndex:ux_donations_session" json:"stripeSessionId"`
	StripePaymentIntentID *string              `gorm:"column:stripe_payment_intent_id;uniqueIndex:ux_donations_payment_intent" json:"stripePaymentIntentId,omitempty"`
	StripeChargeID        *string              `gorm:"column:stripe_charge_id" json:"stripeChargeId,omitempty"`
	Status                enums.DonationStatus `gorm:"column:status;not null;default:'pending';index:idx_donations_status" json:"status"`
	Message               string               `gorm:"column:message;not null;default:''" json:"message"`
	Metadata              datatypes.JSONMap    `gorm:"column:metadata" json:"metadata"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime;index:idx_donations_donor_created,priority:2,sort:desc;index:idx_donations_recipient_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (d *Donation) BeforeCreate(*gorm.DB) error {
	if d.ID.IsZero() {
		d.ID = types.NewObjectID()
	}
	return nil
}

// IsAnonymous reports whether the donation has no donor account.
func (d Donation) IsAnonymous() bool {
	return d.DonorID.IsZero()
}

// PaymentIntentID returns the stored intent id or an empty string.
func (d Donation) PaymentIntentID() string {
	if d.StripePaymentIntentID == nil {
		return ""
	}
	return strings.TrimSpace(*d.StripePaymentIntentID)
}
