package photos

import (
	"context"

	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// Service defines photo upload operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Photo, error)
	FindByID(ctx context.Context, id types.ObjectID) (*models.Photo, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Photo, error)
	FindByOwner(ctx context.Context, ownerID types.ObjectID, params pagination.Params) (*ListResult, error)
	ListGallery(ctx context.Context, category enums.PhotoCategory, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Photo, error)
	Delete(ctx context.Context, actorID, id types.ObjectID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires photo dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "photos repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Photo, error) {
	var check schema.Checker

	title := schema.Trim(input.Title)
	photographer := schema.Trim(input.Photographer)
	check.RequiredID("user", input.UserID)
	check.Required("title", title)
	check.Required("photographer", photographer)
	if input.Category == "" {
		check.Add("category", "is required")
	} else {
		check.Enum("category", input.Category.String(), input.Category.IsValid(), enums.PhotoCategoryValues())
	}

	status := input.UploadStatus
	if status == "" {
		status = enums.PhotoUploadStatusProcessing
	}
	check.Enum("uploadStatus", status.String(), status.IsValid(), enums.PhotoUploadStatusValues())

	checkDimension(&check, "width", input.Width)
	checkDimension(&check, "height", input.Height)
	checkDimension(&check, "settings.iso", input.Settings.ISO)

	ref := input.Image.Normalize()
	check.HashedStorageRef("image", ref, true)

	if err := check.Err(); err != nil {
		return nil, err
	}

	photo := &models.Photo{
		UserID:          input.UserID,
		Title:           title,
		Photographer:    photographer,
		PhotoCollection: schema.Trim(input.PhotoCollection),
		Category:        input.Category,
		CaptureDate:     input.CaptureDate,
		Location:        schema.Trim(input.Location),
		Description:     schema.Trim(input.Description),
		Image:           ref,
		Width:           input.Width,
		Height:          input.Height,
		Camera:          input.Camera,
		Settings: models.PhotoSettings{
			ISO:          input.Settings.ISO,
			Aperture:     input.Settings.Aperture,
			ShutterSpeed: input.Settings.ShutterSpeed,
			FocalLength:  input.Settings.FocalLength,
		},
		Released:     input.Released,
		UploadStatus: status,
	}
	if err := s.repo.Create(ctx, photo); err != nil {
		return nil, s.translateWrite(ctx, err, ref.Hash(), "create photo")
	}
	return photo, nil
}

func (s *service) FindByID(ctx context.Context, id types.ObjectID) (*models.Photo, error) {
	photo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err, "photo not found")
	}
	return photo, nil
}

func (s *service) FindByContentHash(ctx context.Context, hash string) (*models.Photo, error) {
	ref := types.HashedStorageRef{ContentHash: &hash}.Normalize()
	if ref.ContentHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content hash required").WithDetails(map[string]any{"field": "contentHash"})
	}
	photo, err := s.repo.FindByContentHash(ctx, ref.Hash())
	if err != nil {
		return nil, db.TranslateError(err, "photo not found")
	}
	return photo, nil
}

func (s *service) FindByOwner(ctx context.Context, ownerID types.ObjectID, params pagination.Params) (*ListResult, error) {
	if ownerID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, ownerID, params.Limit, cursor)
	if err != nil {
		return nil, db.TranslateError(err, "list photos")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) ListGallery(ctx context.Context, category enums.PhotoCategory, params pagination.Params) (*ListResult, error) {
	var check schema.Checker
	check.Enum("category", category.String(), category.IsValid(), enums.PhotoCategoryValues())
	if err := check.Err(); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListReleasedByCategory(ctx, category, params.Limit, cursor)
	if err != nil {
		return nil, db.TranslateError(err, "list gallery")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Photo, error) {
	current, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	var check schema.Checker
	fields := map[string]any{}

	if input.UserID != nil && *input.UserID != current.UserID {
		check.Add("user", "cannot be changed")
	}
	if input.Title != nil {
		title := schema.Trim(*input.Title)
		check.Required("title", title)
		fields["title"] = title
	}
	if input.Photographer != nil {
		photographer := schema.Trim(*input.Photographer)
		check.Required("photographer", photographer)
		fields["photographer"] = photographer
	}
	if input.PhotoCollection != nil {
		fields["photo_collection"] = schema.Trim(*input.PhotoCollection)
	}
	if input.Category != nil {
		check.Enum("category", input.Category.String(), input.Category.IsValid(), enums.PhotoCategoryValues())
		fields["category"] = *input.Category
	}
	if input.CaptureDate.Valid {
		fields["capture_date"] = input.CaptureDate.Value
	}
	if input.Location != nil {
		fields["location"] = schema.Trim(*input.Location)
	}
	if input.Description != nil {
		fields["description"] = schema.Trim(*input.Description)
	}
	if input.Width.Valid {
		checkDimension(&check, "width", input.Width.Value)
		fields["width"] = input.Width.Value
	}
	if input.Height.Valid {
		checkDimension(&check, "height", input.Height.Value)
		fields["height"] = input.Height.Value
	}
	if input.Camera != nil {
		fields["camera"] = *input.Camera
	}
	if settings := input.Settings; settings != nil {
		if settings.ISO.Valid {
			checkDimension(&check, "settings.iso", settings.ISO.Value)
			fields["settings_iso"] = settings.ISO.Value
		}
		if settings.Aperture != nil {
			fields["settings_aperture"] = *settings.Aperture
		}
		if settings.ShutterSpeed != nil {
			fields["settings_shutter_speed"] = *settings.ShutterSpeed
		}
		if settings.FocalLength != nil {
			fields["settings_focal_length"] = *settings.FocalLength
		}
	}
	if input.Released != nil {
		fields["released"] = *input.Released
	}
	if input.UploadStatus != nil {
		check.Enum("uploadStatus", input.UploadStatus.String(), input.UploadStatus.IsValid(), enums.PhotoUploadStatusValues())
		fields["upload_status"] = *input.UploadStatus
	}

	newHash := ""
	if input.Image != nil {
		ref := input.Image.Normalize()
		if ref.ContentHash == nil {
			ref.ContentHash = current.Image.ContentHash
		}
		if current.Image.ContentHash != nil && ref.Hash() != current.Image.Hash() {
			check.Add("image.contentHash", "cannot be changed once set")
		}
		check.HashedStorageRef("image", ref, true)
		if current.Image.ContentHash == nil {
			newHash = ref.Hash()
		}
		fields["image_file_name"] = ref.FileName
		fields["image_file_size"] = ref.FileSize
		fields["image_file_type"] = ref.FileType
		fields["image_file_url"] = ref.FileURL
		fields["image_storage_key"] = ref.StorageKey
		fields["image_content_hash"] = ref.ContentHash
	}

	if err := check.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.translateWrite(ctx, err, newHash, "update photo")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}
	return s.FindByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, actorID, id types.ObjectID) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return db.TranslateError(err, "delete photo")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}
	return nil
}

func (s *service) owned(ctx context.Context, actorID, id types.ObjectID) (*models.Photo, error) {
	photo, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID.IsZero() || photo.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "photo belongs to another user")
	}
	return photo, nil
}

func (s *service) translateWrite(ctx context.Context, err error, hash, message string) error {
	translated := db.TranslateError(err, message)
	if hash == "" || !pkgerrors.IsCode(translated, pkgerrors.CodeDuplicate) {
		return translated
	}
	details := map[string]any{"field": "image.contentHash"}
	if existing, lookupErr := s.repo.FindByContentHash(ctx, hash); lookupErr == nil {
		details["existingId"] = existing.ID.Hex()
	} else if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "content_hash", hash), "duplicate photo hash without a matching row")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "photo already uploaded").WithDetails(details)
}

func checkDimension(check *schema.Checker, field string, value *int) {
	if value != nil {
		check.NonNegative(field, int64(*value))
	}
}
