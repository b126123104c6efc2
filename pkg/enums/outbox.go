package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateDonation OutboxAggregateType = "donation"
	AggregateRelease  OutboxAggregateType = "release"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateDonation || a == AggregateRelease
}

// OutboxEventType names a domain event queued in outbox_events.
type OutboxEventType string

const (
	EventDonationCompleted OutboxEventType = "donation_completed"
	EventDonationFailed    OutboxEventType = "donation_failed"
	EventDonationRefunded  OutboxEventType = "donation_refunded"
	EventReleasePublished  OutboxEventType = "release_published"
)

// eventAggregates is the closed set of event types and the aggregate each
// one belongs to.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventDonationCompleted: AggregateDonation,
	EventDonationFailed:    AggregateDonation,
	EventDonationRefunded:  AggregateDonation,
	EventReleasePublished:  AggregateRelease,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type e is emitted for, or "" when e is
// unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

// DonationEventFor maps a terminal donation status onto the event announcing
// it. ok is false for pending, which is never announced.
func DonationEventFor(status DonationStatus) (OutboxEventType, bool) {
	switch status {
	case DonationStatusCompleted:
		return EventDonationCompleted, true
	case DonationStatusFailed:
		return EventDonationFailed, true
	case DonationStatusRefunded:
		return EventDonationRefunded, true
	default:
		return "", false
	}
}
