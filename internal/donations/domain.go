package donations

import (
	"strings"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// Donor identifies who gave a donation. It is either an IdentifiedDonor or an
// AnonymousDonor; persistence collapses it into the donor and donor_email
// columns.
type Donor interface {
	donor()
}

// IdentifiedDonor is a donor with an account.
type IdentifiedDonor struct {
	UserID types.ObjectID
}

// AnonymousDonor is a donor known only by a receipt email.
type AnonymousDonor struct {
	Email string
}

func (IdentifiedDonor) donor() {}
func (AnonymousDonor) donor()  {}

// DonorFrom builds the donor variant from the two wire fields. A non-zero
// user id wins.
func DonorFrom(userID types.ObjectID, email string) Donor {
	if !userID.IsZero() {
		return IdentifiedDonor{UserID: userID}
	}
	return AnonymousDonor{Email: strings.TrimSpace(email)}
}

// Outcome reports what ApplyWebhook did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookEvent is a processor-neutral payment callback.
type WebhookEvent struct {
	ID              string
	Kind            enums.WebhookEventKind
	SessionID       string
	PaymentIntentID string
	ChargeID        string
}

func (e WebhookEvent) normalize() WebhookEvent {
	e.SessionID = strings.TrimSpace(e.SessionID)
	e.PaymentIntentID = strings.TrimSpace(e.PaymentIntentID)
	e.ChargeID = strings.TrimSpace(e.ChargeID)
	return e
}
