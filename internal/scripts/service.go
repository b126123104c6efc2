package scripts

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

// Service defines script upload operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Script, error)
	FindByID(ctx context.Context, id types.ObjectID) (*models.Script, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Script, error)
	FindByOwner(ctx context.Context, ownerID types.ObjectID, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Script, error)
	Delete(ctx context.Context, actorID, id types.ObjectID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires script dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scripts repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Script, error) {
	var check schema.Checker

	title := schema.Trim(input.Title)
	filmmaker := schema.Trim(input.Filmmaker)
	check.RequiredID("user", input.UserID)
	check.Required("title", title)
	check.Required("filmmaker", filmmaker)

	status := input.UploadStatus
	if status == "" {
		status = enums.ScriptUploadStatusReady
	}
	check.Enum("uploadStatus", status.String(), status.IsValid(), enums.ScriptUploadStatusValues())

	ref := input.Script.Normalize()
	check.HashedStorageRef("script", ref, true)

	if err := check.Err(); err != nil {
		return nil, err
	}

	script := &models.Script{
		UserID:       input.UserID,
		Title:        title,
		Filmmaker:    filmmaker,
		Project:      schema.Trim(input.Project),
		Category:     schema.Trim(input.Category),
		Description:  schema.Trim(input.Description),
		Script:       ref,
		UploadStatus: status,
		Released:     input.Released,
	}
	if err := s.repo.Create(ctx, script); err != nil {
		return nil, s.translateWrite(ctx, err, ref.Hash(), "create script")
	}
	return script, nil
}

func (s *service) FindByID(ctx context.Context, id types.ObjectID) (*models.Script, error) {
	script, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err, "script not found")
	}
	return script, nil
}

func (s *service) FindByContentHash(ctx context.Context, hash string) (*models.Script, error) {
	ref := types.HashedStorageRef{ContentHash: &hash}.Normalize()
	if ref.ContentHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content hash required").WithDetails(map[string]any{"field": "contentHash"})
	}
	script, err := s.repo.FindByContentHash(ctx, ref.Hash())
	if err != nil {
		return nil, db.TranslateError(err, "script not found")
	}
	return script, nil
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
		return nil, db.TranslateError(err, "list scripts")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Script, error) {
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
	if input.Filmmaker != nil {
		filmmaker := schema.Trim(*input.Filmmaker)
		check.Required("filmmaker", filmmaker)
		fields["filmmaker"] = filmmaker
	}
	if input.Project != nil {
		fields["project"] = schema.Trim(*input.Project)
	}
	if input.Category != nil {
		fields["category"] = schema.Trim(*input.Category)
	}
	if input.Description != nil {
		fields["description"] = schema.Trim(*input.Description)
	}
	if input.UploadStatus != nil {
		check.Enum("uploadStatus", input.UploadStatus.String(), input.UploadStatus.IsValid(), enums.ScriptUploadStatusValues())
		fields["upload_status"] = *input.UploadStatus
	}
	if input.Released != nil {
		fields["released"] = *input.Released
	}

	newHash := ""
	if input.Script != nil {
		ref := input.Script.Normalize()
		if ref.ContentHash == nil {
			ref.ContentHash = current.Script.ContentHash
		}
		if current.Script.ContentHash != nil && ref.Hash() != current.Script.Hash() {
			check.Add("script.contentHash", "cannot be changed once set")
		}
		check.HashedStorageRef("script", ref, true)
		if current.Script.ContentHash == nil {
			newHash = ref.Hash()
		}
		fields["script_file_name"] = ref.FileName
		fields["script_file_size"] = ref.FileSize
		fields["script_file_type"] = ref.FileType
		fields["script_file_url"] = ref.FileURL
		fields["script_storage_key"] = ref.StorageKey
		fields["script_content_hash"] = ref.ContentHash
	}

	if err := check.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.translateWrite(ctx, err, newHash, "update script")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "script not found")
	}
	return s.FindByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, actorID, id types.ObjectID) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return db.TranslateError(err, "delete script")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "script not found")
	}
	return nil
}

func (s *service) owned(ctx context.Context, actorID, id types.ObjectID) (*models.Script, error) {
	script, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID.IsZero() || script.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "script belongs to another user")
	}
	return script, nil
}

// translateWrite maps a write failure and, for a content hash collision,
// attaches the id of the script already holding the hash.
func (s *service) translateWrite(ctx context.Context, err error, hash, message string) error {
	translated := db.TranslateError(err, message)
	if hash == "" || !pkgerrors.IsCode(translated, pkgerrors.CodeDuplicate) {
		return translated
	}
	details := map[string]any{"field": "script.contentHash"}
	if existing, lookupErr := s.repo.FindByContentHash(ctx, hash); lookupErr == nil {
		details["existingId"] = existing.ID.Hex()
	} else if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "content_hash", hash), "duplicate script hash without a matching row")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "script already uploaded").WithDetails(details)
}
