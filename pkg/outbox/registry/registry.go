// Package registry maps outbox event types to the Pub/Sub topic they are
// relayed to and the payload schema subscribers can rely on.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// ResolvedEvent is an outbox row that passed validation, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox event"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry routes donation status changes to the donation topic and
// release go-lives to the release topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topics := map[enums.OutboxAggregateType]string{
		enums.AggregateDonation: strings.TrimSpace(cfg.DonationTopic),
		enums.AggregateRelease:  strings.TrimSpace(cfg.ReleaseTopic),
	}
	for aggregate, topic := range topics {
		if topic == "" {
			return nil, fmt.Errorf("pubsub topic for %s events is required", aggregate)
		}
	}

	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		{EventType: enums.EventDonationCompleted, AggregateType: enums.AggregateDonation, newPayload: payloadOf[payloads.DonationStatusEvent]()},
		{EventType: enums.EventDonationFailed, AggregateType: enums.AggregateDonation, newPayload: payloadOf[payloads.DonationStatusEvent]()},
		{EventType: enums.EventDonationRefunded, AggregateType: enums.AggregateDonation, newPayload: payloadOf[payloads.DonationStatusEvent]()},
		{EventType: enums.EventReleasePublished, AggregateType: enums.AggregateRelease, newPayload: payloadOf[payloads.ReleasePublishedEvent]()},
	} {
		d.Topic = topics[d.AggregateType]
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics lists the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	set := map[string]struct{}{}
	for _, d := range r.entries {
		set[d.Topic] = struct{}{}
	}
	topics := make([]string, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks a row against its descriptor and decodes the typed payload.
// Every failure is non-retryable since the stored row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %q", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s aggregates, row has %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID.IsZero():
		return nil, nonRetryable("%s row has no aggregate id", event.EventType)
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.newPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}

// IsNonRetryable reports whether err carries a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}
