package scripts

import (
	"context"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for scripts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, script *models.Script) error
	FindByID(ctx context.Context, id types.ObjectID) (*models.Script, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Script, error)
	ListByUser(ctx context.Context, userID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Script, error)
	Update(ctx context.Context, id types.ObjectID, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id types.ObjectID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a scripts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, script *models.Script) error {
	return r.db.WithContext(ctx).Create(script).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id types.ObjectID) (*models.Script, error) {
	var script models.Script
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&script).Error; err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *repositoryImpl) FindByContentHash(ctx context.Context, hash string) (*models.Script, error) {
	var script models.Script
	if err := r.db.WithContext(ctx).Where("script_content_hash = ?", hash).First(&script).Error; err != nil {
		return nil, err
	}
	return &script, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID types.ObjectID, limit int, cursor *pagination.Cursor) ([]models.Script, error) {
	var rows []models.Script
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(pagination.Scope(cursor, limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) Update(ctx context.Context, id types.ObjectID, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = r.db.NowFunc()
	}
	result := r.db.WithContext(ctx).Model(&models.Script{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id types.ObjectID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Script{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
