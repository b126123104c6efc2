package enums

import "fmt"

// WebhookEventKind is the processor-neutral kind of a payment callback.
type WebhookEventKind string

const (
	WebhookEventCheckoutCompleted WebhookEventKind = "checkout.completed"
	WebhookEventPaymentSucceeded  WebhookEventKind = "payment.succeeded"
	WebhookEventPaymentFailed     WebhookEventKind = "payment.failed"
	WebhookEventChargeRefunded    WebhookEventKind = "charge.refunded"
)

var validWebhookEventKinds = []WebhookEventKind{
	WebhookEventCheckoutCompleted,
	WebhookEventPaymentSucceeded,
	WebhookEventPaymentFailed,
	WebhookEventChargeRefunded,
}

// String returns the literal string for the kind.
func (k WebhookEventKind) String() string {
	return string(k)
}

// IsValid reports whether the kind is known.
func (k WebhookEventKind) IsValid() bool {
	for _, candidate := range validWebhookEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// WebhookEventKindValues returns the accepted kinds in declaration order.
func WebhookEventKindValues() []string {
	out := make([]string, len(validWebhookEventKinds))
	for i, candidate := range validWebhookEventKinds {
		out[i] = string(candidate)
	}
	return out
}

// RequiredStatus is the donation status the event applies to.
func (k WebhookEventKind) RequiredStatus() DonationStatus {
	if k == WebhookEventChargeRefunded {
		return DonationStatusCompleted
	}
	return DonationStatusPending
}

// TargetStatus is the donation status the event drives toward.
func (k WebhookEventKind) TargetStatus() DonationStatus {
	switch k {
	case WebhookEventCheckoutCompleted, WebhookEventPaymentSucceeded:
		return DonationStatusCompleted
	case WebhookEventPaymentFailed:
		return DonationStatusFailed
	case WebhookEventChargeRefunded:
		return DonationStatusRefunded
	default:
		return ""
	}
}

// ParseWebhookEventKind converts raw input into a WebhookEventKind.
func ParseWebhookEventKind(value string) (WebhookEventKind, error) {
	for _, candidate := range validWebhookEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event kind %q", value)
}
