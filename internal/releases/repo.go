package releases

import (
	"context"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for releases.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, release *models.Release) error
	FindByID(ctx context.Context, id types.ObjectID) (*models.Release, error)
	ListByCreator(ctx context.Context, creatorID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Release, error)
	ListByStatus(ctx context.Context, status enums.ReleaseStatus, limit int, cursor *pagination.Cursor) ([]models.Release, error)
	ListDueForRelease(ctx context.Context, before time.Time, limit int) ([]models.Release, error)
	UpdateIfStatus(ctx context.Context, id types.ObjectID, expected enums.ReleaseStatus, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id types.ObjectID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a releases repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, release *models.Release) error {
	return r.db.WithContext(ctx).Create(release).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id types.ObjectID) (*models.Release, error) {
	var release models.Release
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&release).Error; err != nil {
		return nil, err
	}
	return &release, nil
}

func (r *repositoryImpl) ListByCreator(ctx context.Context, creatorID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Release, error) {
	query := r.db.WithContext(ctx).Model(&models.Release{}).Where("creator = ?", creatorID)
	return r.page(query, limit, cursor)
}

func (r *repositoryImpl) ListByStatus(ctx context.Context, status enums.ReleaseStatus, limit int, cursor *pagination.Cursor) ([]models.Release, error) {
	query := r.db.WithContext(ctx).Model(&models.Release{}).Where("status = ?", status)
	return r.page(query, limit, cursor)
}

// ListDueForRelease returns scheduled releases whose release date has passed,
// oldest release date first.
func (r *repositoryImpl) ListDueForRelease(ctx context.Context, before time.Time, limit int) ([]models.Release, error) {
	var rows []models.Release
	err := r.db.WithContext(ctx).
		Where("status = ? AND release_date <= ?", enums.ReleaseStatusScheduled, before).
		Order("release_date ASC, id ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// UpdateIfStatus writes fields only while the row still holds the expected
// status. It reports whether a row was changed.
func (r *repositoryImpl) UpdateIfStatus(ctx context.Context, id types.ObjectID, expected enums.ReleaseStatus, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = r.db.NowFunc()
	}
	result := r.db.WithContext(ctx).
		Model(&models.Release{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id types.ObjectID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Release{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) page(query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.Release, error) {
	var rows []models.Release
	err := query.Scopes(pagination.Scope(cursor, limit)).Find(&rows).Error
	return rows, err
}
