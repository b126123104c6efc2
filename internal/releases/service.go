package releases

import (
	"context"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/creatorhub-backend/pkg/db/types"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"go.uber.org/multierr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service defines release lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Release, error)
	FindByID(ctx context.Context, id types.ObjectID) (*models.Release, error)
	FindByOwner(ctx context.Context, ownerID types.ObjectID, params pagination.Params) (*ListResult, error)
	ListByStatus(ctx context.Context, status enums.ReleaseStatus, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Release, error)
	Delete(ctx context.Context, actorID, id types.ObjectID) error
	PublishDue(ctx context.Context, limit int) (PublishResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	logg   *logger.Logger
	clock  func() time.Time
	tx     txRunner
	events outboxPublisher
}

// ServiceParams wires the release service. PublishDue queues
// release_published events only when both Tx and Events are set.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Clock  func() time.Time
	Tx     txRunner
	Events outboxPublisher
}

// NewService wires release dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "releases repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repo,
		logg:   params.Logger,
		clock:  clock,
		tx:     params.Tx,
		events: params.Events,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Release, error) {
	release, err := s.buildRelease(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, release); err != nil {
		return nil, db.TranslateError(err, "create release")
	}
	return release, nil
}

func (s *service) buildRelease(input CreateInput) (*models.Release, error) {
	var check schema.Checker

	name := schema.Trim(input.Name)
	check.RequiredID("creator", input.CreatorID)
	check.Required("name", name)

	releaseType := input.Type
	if releaseType == "" {
		releaseType = enums.ReleaseTypeSingle
	}
	check.Enum("type", releaseType.String(), releaseType.IsValid(), enums.ReleaseTypeValues())

	status := input.Status
	if status == "" {
		status = enums.ReleaseStatusDraft
	}
	check.Enum("status", status.String(), status.IsValid(), enums.ReleaseStatusValues())

	if input.ReleaseDate == nil || input.ReleaseDate.IsZero() {
		check.Add("releaseDate", "is required")
	} else if status == enums.ReleaseStatusScheduled {
		s.checkSchedulable(&check, *input.ReleaseDate)
	}
	checkTracks(&check, input.Tracks)

	artwork := normalizeArtwork(input.Artwork)
	if artwork != nil {
		check.StorageRef("artwork", *artwork)
	}

	if err := check.Err(); err != nil {
		return nil, err
	}

	release := &models.Release{
		CreatorID:            input.CreatorID,
		Name:                 name,
		Type:                 releaseType,
		Tracks:               dbtypes.ObjectIDArray(append([]types.ObjectID{}, input.Tracks...)),
		ReleaseDate:          input.ReleaseDate.UTC(),
		Artwork:              artwork,
		Description:          schema.Trim(input.Description),
		Status:               status,
		DistributionChannels: channels(input.DistributionChannels),
		Metadata:             metadata(input.Metadata),
	}
	return release, nil
}

func (s *service) FindByID(ctx context.Context, id types.ObjectID) (*models.Release, error) {
	release, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, db.TranslateError(err, "release not found")
	}
	return release, nil
}

func (s *service) FindByOwner(ctx context.Context, ownerID types.ObjectID, params pagination.Params) (*ListResult, error) {
	if ownerID.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByCreator(ctx, ownerID, params.Limit, cursor)
	if err != nil {
		return nil, db.TranslateError(err, "list releases")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.ReleaseStatus, params pagination.Params) (*ListResult, error) {
	var check schema.Checker
	check.Enum("status", status.String(), status.IsValid(), enums.ReleaseStatusValues())
	if err := check.Err(); err != nil {
		return nil, err
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStatus(ctx, status, params.Limit, cursor)
	if err != nil {
		return nil, db.TranslateError(err, "list releases")
	}
	page := pagination.NewPage(rows, params.Limit, cursorOf)
	return &page, nil
}

func (s *service) Update(ctx context.Context, actorID, id types.ObjectID, input UpdateInput) (*models.Release, error) {
	current, err := s.ownedRelease(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	fields, err := s.changes(current, input)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.repo.UpdateIfStatus(ctx, id, current.Status, fields)
	if err != nil {
		return nil, db.TranslateError(err, "update release")
	}
	if !updated {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			return nil, db.TranslateError(err, "release not found")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "release status changed concurrently")
	}
	return s.FindByID(ctx, id)
}

// changes validates input against the stored release and returns the
// columns to write.
func (s *service) changes(current *models.Release, input UpdateInput) (map[string]any, error) {
	var check schema.Checker
	fields := map[string]any{}

	if input.CreatorID != nil && *input.CreatorID != current.CreatorID {
		check.Add("creator", "cannot be changed")
	}
	if input.Name != nil {
		name := schema.Trim(*input.Name)
		check.Required("name", name)
		fields["name"] = name
	}
	if input.Type != nil {
		check.Enum("type", input.Type.String(), input.Type.IsValid(), enums.ReleaseTypeValues())
		fields["type"] = *input.Type
	}

	releaseDate := current.ReleaseDate
	if input.ReleaseDate != nil {
		if input.ReleaseDate.IsZero() {
			check.Add("releaseDate", "is required")
		}
		releaseDate = input.ReleaseDate.UTC()
		fields["release_date"] = releaseDate
	}

	var conflict error
	if input.Status != nil && *input.Status != current.Status {
		next := *input.Status
		check.Enum("status", next.String(), next.IsValid(), enums.ReleaseStatusValues())
		if next.IsValid() {
			if !current.Status.CanTransitionTo(next) {
				conflict = pkgerrors.New(pkgerrors.CodeStateConflict, "release status transition not allowed").
					WithDetails(map[string]any{"from": current.Status, "to": next})
			}
			if next == enums.ReleaseStatusScheduled {
				s.checkSchedulable(&check, releaseDate)
			}
		}
		fields["status"] = next
	}

	if input.Tracks != nil {
		checkTracks(&check, *input.Tracks)
		if !current.Status.AllowsTrackChanges() && conflict == nil {
			conflict = pkgerrors.New(pkgerrors.CodeStateConflict, "tracks can only change while the release is draft or scheduled").
				WithDetails(map[string]any{"status": current.Status})
		}
		fields["tracks"] = dbtypes.ObjectIDArray(append([]types.ObjectID{}, (*input.Tracks)...))
	}

	if input.Artwork.Valid {
		artwork := normalizeArtwork(input.Artwork.Value)
		if artwork == nil {
			artwork = &types.StorageRef{}
		} else {
			check.StorageRef("artwork", *artwork)
		}
		fields["artwork_file_name"] = artwork.FileName
		fields["artwork_file_size"] = artwork.FileSize
		fields["artwork_file_type"] = artwork.FileType
		fields["artwork_file_url"] = artwork.FileURL
		fields["artwork_storage_key"] = artwork.StorageKey
	}
	if input.Description != nil {
		fields["description"] = schema.Trim(*input.Description)
	}
	if input.DistributionChannels != nil {
		fields["distribution_channels"] = channels(*input.DistributionChannels)
	}
	if input.Metadata != nil {
		fields["metadata"] = metadata(*input.Metadata)
	}

	if err := check.Err(); err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, conflict
	}
	return fields, nil
}

func (s *service) Delete(ctx context.Context, actorID, id types.ObjectID) error {
	if _, err := s.ownedRelease(ctx, actorID, id); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return db.TranslateError(err, "delete release")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "release not found")
	}
	return nil
}

// PublishDue moves scheduled releases whose release date has passed to
// released. Rows changed by someone else in the meantime are skipped.
func (s *service) PublishDue(ctx context.Context, limit int) (PublishResult, error) {
	now := s.clock().UTC()
	due, err := s.repo.ListDueForRelease(ctx, now, limit)
	if err != nil {
		return PublishResult{}, db.TranslateError(err, "list due releases")
	}

	result := PublishResult{Due: len(due)}
	var errs error
	for _, release := range due {
		updated, err := s.publish(ctx, release, now)
		if err != nil {
			errs = multierr.Append(errs, db.TranslateError(err, "publish release "+release.ID.Hex()))
			continue
		}
		if !updated {
			result.Skipped++
			continue
		}
		result.Published++
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "release_id", release.ID.Hex()), "release published")
		}
	}
	return result, errs
}

func (s *service) publish(ctx context.Context, release models.Release, now time.Time) (bool, error) {
	fields := map[string]any{"status": enums.ReleaseStatusReleased}
	if s.tx == nil || s.events == nil {
		return s.repo.UpdateIfStatus(ctx, release.ID, enums.ReleaseStatusScheduled, fields)
	}
	updated := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.repo.WithTx(tx).UpdateIfStatus(ctx, release.ID, enums.ReleaseStatusScheduled, fields)
		if err != nil || !updated {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReleasePublished,
			AggregateType: enums.AggregateRelease,
			AggregateID:   release.ID,
			Data: payloads.ReleasePublishedEvent{
				ReleaseID:   release.ID,
				CreatorID:   release.CreatorID,
				Name:        release.Name,
				ReleaseDate: release.ReleaseDate,
				PublishedAt: now,
			},
			OccurredAt: now,
		})
	})
	return updated, err
}

func (s *service) ownedRelease(ctx context.Context, actorID, id types.ObjectID) (*models.Release, error) {
	release, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorID.IsZero() || release.CreatorID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "release belongs to another creator")
	}
	return release, nil
}

func (s *service) checkSchedulable(check *schema.Checker, releaseDate time.Time) {
	if !releaseDate.After(s.clock()) {
		check.Add("releaseDate", "must be in the future to schedule a release")
	}
}

func checkTracks(check *schema.Checker, tracks []types.ObjectID) {
	for _, track := range tracks {
		if track.IsZero() {
			check.Add("tracks", "must only reference existing tracks")
			return
		}
	}
}

func normalizeArtwork(ref *types.StorageRef) *types.StorageRef {
	if ref == nil {
		return nil
	}
	normalized := ref.Normalize()
	if normalized.IsEmpty() {
		return nil
	}
	return &normalized
}

func channels(values []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(values))
	return append(out, values...)
}

func metadata(values map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range values {
		out[k] = v
	}
	return out
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}
