package photos

import (
	"context"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for photos.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, photo *models.Photo) error
	FindByID(ctx context.Context, id types.ObjectID) (*models.Photo, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Photo, error)
	ListByUser(ctx context.Context, userID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Photo, error)
	ListReleasedByCategory(ctx context.Context, category enums.PhotoCategory, limit int, cursor *pagination.Cursor) ([]models.Photo, error)
	Update(ctx context.Context, id types.ObjectID, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id types.ObjectID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a photos repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id types.ObjectID) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *repositoryImpl) FindByContentHash(ctx context.Context, hash string) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Where("image_content_hash = ?", hash).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Photo, error) {
	return r.feed(r.db.WithContext(ctx).Where("user_id = ?", userID), limit, cursor)
}

// ListReleasedByCategory backs the public gallery: only released photos
// whose upload finished.
func (r *repositoryImpl) ListReleasedByCategory(ctx context.Context, category enums.PhotoCategory, limit int, cursor *pagination.Cursor) ([]models.Photo, error) {
	query := r.db.WithContext(ctx).
		Where("category = ? AND released = ? AND upload_status = ?", category, true, enums.PhotoUploadStatusReady)
	return r.feed(query, limit, cursor)
}

func (r *repositoryImpl) feed(query *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.Photo, error) {
	var rows []models.Photo
	err := query.Model(&models.Photo{}).Scopes(pagination.Scope(cursor, limit)).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Update(ctx context.Context, id types.ObjectID, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = r.db.NowFunc()
	}
	result := r.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id types.ObjectID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Photo{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
