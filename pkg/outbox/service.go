package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

const envelopeVersion = 1

var errTxRequired = errors.New("transaction required")

// DomainEvent is what services hand to Emit. Data is marshalled into the
// envelope's data field.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   types.ObjectID
	ActorID       *types.ObjectID
	Data          any
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	var errs error
	if !e.EventType.IsValid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown event type %q", e.EventType))
	} else if e.EventType.Aggregate() != e.AggregateType {
		errs = multierr.Append(errs, fmt.Errorf("%s is not a %s event", e.EventType, e.AggregateType))
	}
	if e.AggregateID.IsZero() {
		errs = multierr.Append(errs, errors.New("aggregate id required"))
	}
	return errs
}

// Service queues domain events in outbox_events.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores the event on tx so it commits or rolls back with the state
// change it describes. The row id doubles as the envelope's event id.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	if err := event.validate(); err != nil {
		return fmt.Errorf("outbox event: %w", err)
	}
	row, err := buildRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":     row.ID.String(),
			"event_type":   row.EventType,
			"aggregate_id": row.AggregateID.Hex(),
		}), "outbox event queued")
	}
	return nil
}

func buildRow(event DomainEvent) (*models.OutboxEvent, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	id := uuid.New()
	payload, err := json.Marshal(Envelope{
		Version:    envelopeVersion,
		EventID:    id.String(),
		OccurredAt: occurredAt.UTC(),
		ActorID:    event.ActorID,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}
	return &models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       datatypes.JSON(payload),
	}, nil
}
