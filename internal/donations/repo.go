package donations

import (
	"context"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for donations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, donation *models.Donation) error
	FindByID(ctx context.Context, id types.ObjectID) (*models.Donation, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Donation, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Donation, error)
	ListByRecipient(ctx context.Context, recipientID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Donation, error)
	ListByStatus(ctx context.Context, status enums.DonationStatus, limit int, cursor *pagination.Cursor) ([]models.Donation, error)
	Transition(ctx context.Context, id types.ObjectID, from, to enums.DonationStatus, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id types.ObjectID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a donations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, donation *models.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id types.ObjectID) (*models.Donation, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repositoryImpl) FindBySessionID(ctx context.Context, sessionID string) (*models.Donation, error) {
	return r.findOne(ctx, "stripe_session_id = ?", sessionID)
}

func (r *repositoryImpl) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	return r.findOne(ctx, "stripe_payment_intent_id = ?", paymentIntentID)
}

func (r *repositoryImpl) findOne(ctx context.Context, clause string, arg any) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.WithContext(ctx).Where(clause, arg).First(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repositoryImpl) ListByDonor(ctx context.Context, donorID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Donation, error) {
	return r.feed(r.db.WithContext(ctx).Model(&models.Donation{}).Where("donor = ?", donorID), limit, cursor)
}

func (r *repositoryImpl) ListByRecipient(ctx context.Context, recipientID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Donation, error) {
	return r.feed(r.db.WithContext(ctx).Model(&models.Donation{}).Where("recipient = ?", recipientID), limit, cursor)
}

func (r *repositoryImpl) ListByStatus(ctx context.Context, status enums.DonationStatus, limit int, cursor *pagination.Cursor) ([]models.Donation, error) {
	return r.feed(r.db.WithContext(ctx).Model(&models.Donation{}).Where("status = ?", status), limit, cursor)
}

func (r *repositoryImpl) feed(query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.Donation, error) {
	var rows []models.Donation
	err := query.Scopes(pagination.Scope(cursor, limit)).Find(&rows).Error
	return rows, err
}

// Transition moves the row from one status to another only if it is still in
// the expected status. It reports whether a row was written.
func (r *repositoryImpl) Transition(ctx context.Context, id types.ObjectID, from, to enums.DonationStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": r.db.NowFunc(),
	}
	for key, value := range fields {
		updates[key] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id types.ObjectID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Donation{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
