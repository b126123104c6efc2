package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
)

const defaultDLQListLimit = 50

// ErrNotParked is returned when no dead-letter entry exists for an event.
var ErrNotParked = errors.New("outbox event is not in the dlq")

// DLQRepository stores events the relay gave up on so an operator can
// inspect and requeue them.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// ParkTx copies event into the DLQ on tx. attempts is the total number of
// publish attempts made, including the one that failed.
func (r *DLQRepository) ParkTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, attempts int) error {
	if tx == nil {
		return errTxRequired
	}
	msg := truncateError(cause)
	return tx.Create(&models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  attempts,
		FailedAt:      time.Now().UTC(),
	}).Error
}

// FindByEventID returns nil when the event was never parked.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &entry, nil
}

// List returns the most recent failures first. An empty reason lists all.
func (r *DLQRepository) List(ctx context.Context, reason enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = defaultDLQListLimit
	}
	query := r.db.WithContext(ctx)
	if reason != "" {
		query = query.Where("error_reason = ?", reason)
	}
	var entries []models.OutboxDLQ
	err := query.Order("failed_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// Requeue puts a parked event back in the relay's queue with a fresh attempt
// budget and removes its DLQ entry.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected == 0 {
			return ErrNotParked
		}
		reset := tx.Model(&models.OutboxEvent{}).
			Where("id = ?", eventID).
			Updates(map[string]any{
				"published_at":  nil,
				"attempt_count": 0,
				"last_error":    nil,
			})
		if reset.Error != nil {
			return reset.Error
		}
		if reset.RowsAffected == 0 {
			return fmt.Errorf("requeue %s: outbox row missing", eventID)
		}
		return nil
	})
}
