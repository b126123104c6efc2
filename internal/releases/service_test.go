package releases

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/outbox"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	conn := dbtest.Open(t, &models.Release{})
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:  repo,
		Clock: func() time.Time { return serviceNow },
	})
	require.NoError(t, err)
	return svc, repo
}

func releaseDate() *time.Time {
	d := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestDraftToReleased(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()
	t1, t2 := types.NewObjectID(), types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{
		CreatorID:   creator,
		Name:        "Side A",
		Type:        enums.ReleaseTypeSingle,
		ReleaseDate: releaseDate(),
		Tracks:      []types.ObjectID{t1, t2},
	})
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, enums.ReleaseStatusDraft, created.Status)
	assert.Equal(t, []types.ObjectID{t1, t2}, created.Tracks.IDs())

	released := enums.ReleaseStatusReleased
	updated, err := svc.Update(ctx, creator, created.ID, UpdateInput{Status: &released})
	require.NoError(t, err)
	assert.Equal(t, enums.ReleaseStatusReleased, updated.Status)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Equal(t, []types.ObjectID{t1, t2}, updated.Tracks.IDs())
}

func TestCreateThenFindReturnsEqualRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{
		CreatorID:            creator,
		Name:                 "  Night Drive  ",
		Type:                 enums.ReleaseTypeAlbum,
		ReleaseDate:          releaseDate(),
		Description:          "  late sessions ",
		Artwork:              &types.StorageRef{FileName: "cover.png", FileSize: 2048, FileType: "IMAGE/PNG", FileURL: "https://cdn.example.com/cover.png", StorageKey: "art/cover.png"},
		DistributionChannels: []string{"spotify", "bandcamp", "spotify"},
		Metadata:             map[string]any{"label": "indie", "explicit": false},
	})
	require.NoError(t, err)

	found, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", found.Name)
	assert.Equal(t, "late sessions", found.Description)
	assert.Equal(t, enums.ReleaseTypeAlbum, found.Type)
	require.NotNil(t, found.Artwork)
	assert.Equal(t, "image/png", found.Artwork.FileType)
	assert.Equal(t, int64(2048), found.Artwork.FileSize)
	assert.Equal(t, []string{"spotify", "bandcamp", "spotify"}, []string(found.DistributionChannels))
	assert.Equal(t, "indie", found.Metadata["label"])
	assert.Equal(t, false, found.Metadata["explicit"])
	assert.True(t, found.ReleaseDate.Equal(*releaseDate()))
	assert.Equal(t, created.CreatorID, found.CreatorID)
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		CreatorID:   types.NewObjectID(),
		Name:        "Loose Ends",
		ReleaseDate: releaseDate(),
	})
	require.NoError(t, err)

	found, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReleaseTypeSingle, found.Type)
	assert.Equal(t, enums.ReleaseStatusDraft, found.Status)
	assert.Equal(t, "", found.Description)
	assert.Nil(t, found.Artwork)
	assert.Empty(t, found.Tracks)
	assert.NotNil(t, found.Metadata)
	assert.Empty(t, found.Metadata)
}

func TestCreateRejectsMissingRequiredFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]CreateInput{
		"creator":     {Name: "x", ReleaseDate: releaseDate()},
		"name":        {CreatorID: types.NewObjectID(), Name: "   ", ReleaseDate: releaseDate()},
		"releaseDate": {CreatorID: types.NewObjectID(), Name: "x"},
	}
	for field, input := range cases {
		_, err := svc.Create(ctx, input)
		require.Error(t, err, field)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), field)
		assert.Equal(t, field, schema.FieldOf(err))
	}
}

func TestCreateRejectsEnumViolations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		CreatorID:   types.NewObjectID(),
		Name:        "x",
		Type:        enums.ReleaseType("mixtape"),
		ReleaseDate: releaseDate(),
	})
	require.Error(t, err)
	assert.Equal(t, "type", schema.FieldOf(err))
	assert.Equal(t, enums.ReleaseTypeValues(), schema.AcceptedOf(err))

	_, err = svc.Create(ctx, CreateInput{
		CreatorID:   types.NewObjectID(),
		Name:        "x",
		Status:      enums.ReleaseStatus("live"),
		ReleaseDate: releaseDate(),
	})
	require.Error(t, err)
	assert.Equal(t, "status", schema.FieldOf(err))
}

func TestSchedulingRequiresFutureReleaseDate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()
	past := serviceNow.Add(-time.Hour)

	created, err := svc.Create(ctx, CreateInput{CreatorID: creator, Name: "Old", ReleaseDate: &past})
	require.NoError(t, err)

	scheduled := enums.ReleaseStatusScheduled
	_, err = svc.Update(ctx, creator, created.ID, UpdateInput{Status: &scheduled})
	require.Error(t, err)
	assert.Equal(t, "releaseDate", schema.FieldOf(err))

	future := serviceNow.Add(24 * time.Hour)
	updated, err := svc.Update(ctx, creator, created.ID, UpdateInput{Status: &scheduled, ReleaseDate: &future})
	require.NoError(t, err)
	assert.Equal(t, enums.ReleaseStatusScheduled, updated.Status)
}

func TestTracksFrozenAfterRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{
		CreatorID:   creator,
		Name:        "Frozen",
		ReleaseDate: releaseDate(),
		Status:      enums.ReleaseStatusReleased,
		Tracks:      []types.ObjectID{types.NewObjectID()},
	})
	require.NoError(t, err)

	tracks := []types.ObjectID{types.NewObjectID()}
	_, err = svc.Update(ctx, creator, created.ID, UpdateInput{Tracks: &tracks})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestIllegalStatusTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{CreatorID: creator, Name: "Gone", ReleaseDate: releaseDate(), Status: enums.ReleaseStatusArchived})
	require.NoError(t, err)

	draft := enums.ReleaseStatusDraft
	_, err = svc.Update(ctx, creator, created.ID, UpdateInput{Status: &draft})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateGuardsOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{CreatorID: creator, Name: "Mine", ReleaseDate: releaseDate()})
	require.NoError(t, err)

	name := "Yours"
	_, err = svc.Update(ctx, types.NewObjectID(), created.ID, UpdateInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	other := types.NewObjectID()
	_, err = svc.Update(ctx, creator, created.ID, UpdateInput{CreatorID: &other})
	require.Error(t, err)
	assert.Equal(t, "creator", schema.FieldOf(err))

	_, err = svc.Update(ctx, creator, types.NewObjectID(), UpdateInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateClearsArtwork(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{
		CreatorID:   creator,
		Name:        "Covered",
		ReleaseDate: releaseDate(),
		Artwork:     &types.StorageRef{FileName: "a.jpg", FileURL: "https://cdn.example.com/a.jpg"},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Artwork)

	updated, err := svc.Update(ctx, creator, created.ID, UpdateInput{Artwork: types.Null[types.StorageRef]()})
	require.NoError(t, err)
	assert.Nil(t, updated.Artwork)
}

func TestFindByOwnerNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	var ids []types.ObjectID
	for _, name := range []string{"one", "two", "three"} {
		created, err := svc.Create(ctx, CreateInput{CreatorID: creator, Name: name, ReleaseDate: releaseDate()})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := svc.Create(ctx, CreateInput{CreatorID: types.NewObjectID(), Name: "other", ReleaseDate: releaseDate()})
	require.NoError(t, err)

	first, err := svc.FindByOwner(ctx, creator, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[2], first.Items[0].ID)
	assert.Equal(t, ids[1], first.Items[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.FindByOwner(ctx, creator, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID)
	assert.Empty(t, second.NextCursor)

	_, err = svc.FindByOwner(ctx, creator, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteIsOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	created, err := svc.Create(ctx, CreateInput{CreatorID: creator, Name: "Temp", ReleaseDate: releaseDate()})
	require.NoError(t, err)

	err = svc.Delete(ctx, types.NewObjectID(), created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, creator, created.ID))
	_, err = svc.FindByID(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPublishDue(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	creator := types.NewObjectID()

	dueDate := serviceNow.Add(-time.Minute)
	laterDate := serviceNow.Add(time.Hour)
	due := &models.Release{CreatorID: creator, Name: "due", ReleaseDate: dueDate, Status: enums.ReleaseStatusScheduled, Type: enums.ReleaseTypeSingle}
	later := &models.Release{CreatorID: creator, Name: "later", ReleaseDate: laterDate, Status: enums.ReleaseStatusScheduled, Type: enums.ReleaseTypeSingle}
	draft := &models.Release{CreatorID: creator, Name: "draft", ReleaseDate: dueDate, Status: enums.ReleaseStatusDraft, Type: enums.ReleaseTypeSingle}
	for _, r := range []*models.Release{due, later, draft} {
		require.NoError(t, repo.Create(ctx, r))
	}

	result, err := svc.PublishDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, PublishResult{Due: 1, Published: 1}, result)

	found, err := svc.FindByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReleaseStatusReleased, found.Status)

	found, err = svc.FindByID(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReleaseStatusScheduled, found.Status)

	again, err := svc.PublishDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Due)
}

func TestPublishDueQueuesReleaseEvents(t *testing.T) {
	conn := dbtest.Open(t, &models.Release{}, &models.OutboxEvent{})
	repo := NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Clock:  func() time.Time { return serviceNow },
		Tx:     db.Wrap(conn),
		Events: outbox.NewService(outboxRepo, nil),
	})
	require.NoError(t, err)
	ctx := context.Background()

	due := &models.Release{CreatorID: types.NewObjectID(), Name: "due", ReleaseDate: serviceNow.Add(-time.Hour), Status: enums.ReleaseStatusScheduled, Type: enums.ReleaseTypeAlbum}
	require.NoError(t, repo.Create(ctx, due))

	result, err := svc.PublishDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)

	rows, err := outboxRepo.ListByAggregate(nil, due.ID.Hex())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventReleasePublished, rows[0].EventType)
	assert.Equal(t, enums.AggregateRelease, rows[0].AggregateType)

	_, err = svc.PublishDue(ctx, 10)
	require.NoError(t, err)
	rows, err = outboxRepo.ListByAggregate(nil, due.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
