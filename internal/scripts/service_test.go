package scripts

import (
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/schema"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t, &models.Script{}))
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func hashOf(seed string) string {
	return strings.Repeat(seed, 64/len(seed))
}

func scriptRef(hash string) types.HashedStorageRef {
	return types.HashedStorageRef{
		StorageRef: types.StorageRef{
			FileName:   "pilot.pdf",
			FileSize:   52311,
			FileType:   "application/pdf",
			FileURL:    "https://cdn.example.com/scripts/pilot.pdf",
			StorageKey: "scripts/pilot.pdf",
		},
		ContentHash: &hash,
	}
}

func validInput(user types.ObjectID, hash string) CreateInput {
	return CreateInput{
		UserID:    user,
		Title:     "Pilot",
		Filmmaker: "R. Vega",
		Script:    scriptRef(hash),
	}
}

func TestCreateThenFind(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	input := validInput(user, hashOf("ab"))
	input.Title = "  Pilot  "
	input.Project = " Season One "
	created, err := svc.Create(ctx, input)
	require.NoError(t, err)

	found, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pilot", found.Title)
	assert.Equal(t, "Season One", found.Project)
	assert.Equal(t, enums.ScriptUploadStatusReady, found.UploadStatus)
	assert.False(t, found.Released)
	assert.Equal(t, hashOf("ab"), found.Script.Hash())
	assert.Equal(t, input.Script.StorageRef, found.Script.StorageRef)
}

func TestDuplicateContentHash(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()
	hash := hashOf("abc0")

	first, err := svc.Create(ctx, validInput(user, hash))
	require.NoError(t, err)

	second := validInput(user, hash)
	second.Title = "Different title"
	_, err = svc.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicate))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, first.ID.Hex(), details["existingId"])

	page, err := svc.FindByOwner(ctx, user, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Pilot", page.Items[0].Title)
}

func TestHashIsNormalizedBeforeDedup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	_, err := svc.Create(ctx, validInput(user, hashOf("ab")))
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput(user, " "+strings.ToUpper(hashOf("ab"))+" "))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicate))

	found, err := svc.FindByContentHash(ctx, strings.ToUpper(hashOf("ab")))
	require.NoError(t, err)
	assert.Equal(t, user, found.UserID)
}

func TestMissingHashIsNotIndexed(t *testing.T) {
	_, repo := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.Script{
			UserID:       user,
			Title:        "legacy",
			Filmmaker:    "anon",
			UploadStatus: enums.ScriptUploadStatusReady,
		}))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	missingTitle := validInput(user, hashOf("01"))
	missingTitle.Title = " "
	_, err := svc.Create(ctx, missingTitle)
	assert.Equal(t, "title", schema.FieldOf(err))

	missingFilmmaker := validInput(user, hashOf("01"))
	missingFilmmaker.Filmmaker = ""
	_, err = svc.Create(ctx, missingFilmmaker)
	assert.Equal(t, "filmmaker", schema.FieldOf(err))

	missingUser := validInput(types.NilObjectID, hashOf("01"))
	_, err = svc.Create(ctx, missingUser)
	assert.Equal(t, "user", schema.FieldOf(err))

	missingHash := validInput(user, hashOf("01"))
	missingHash.Script.ContentHash = nil
	_, err = svc.Create(ctx, missingHash)
	assert.Equal(t, "script.contentHash", schema.FieldOf(err))

	shortHash := validInput(user, "abc")
	_, err = svc.Create(ctx, shortHash)
	assert.Equal(t, "script.contentHash", schema.FieldOf(err))

	prefixedHash := validInput(user, "0x"+strings.Repeat("a", 62))
	_, err = svc.Create(ctx, prefixedHash)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "script.contentHash", schema.FieldOf(err))

	badStatus :=validInput(user, hashOf("01"))
	badStatus.UploadStatus = enums.ScriptUploadStatus("queued")
	_, err = svc.Create(ctx, badStatus)
	assert.Equal(t, "uploadStatus", schema.FieldOf(err))
	assert.Equal(t, enums.ScriptUploadStatusValues(), schema.AcceptedOf(err))

	negative := validInput(user, hashOf("01"))
	negative.Script.FileSize = -1
	_, err = svc.Create(ctx, negative)
	assert.Equal(t, "script.fileSize", schema.FieldOf(err))
}

func TestUpdateKeepsHashImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	created, err := svc.Create(ctx, validInput(user, hashOf("cd")))
	require.NoError(t, err)

	changed := scriptRef(hashOf("ef"))
	_, err = svc.Update(ctx, user, created.ID, UpdateInput{Script: &changed})
	require.Error(t, err)
	assert.Equal(t, "script.contentHash", schema.FieldOf(err))

	moved := scriptRef(hashOf("cd"))
	moved.FileURL = "https://cdn.example.com/scripts/v2/pilot.pdf"
	moved.ContentHash = nil
	updated, err := svc.Update(ctx, user, created.ID, UpdateInput{Script: &moved})
	require.NoError(t, err)
	assert.Equal(t, hashOf("cd"), updated.Script.Hash())
	assert.Equal(t, "https://cdn.example.com/scripts/v2/pilot.pdf", updated.Script.FileURL)
}

func TestUpdateFieldsAndOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	created, err := svc.Create(ctx, validInput(user, hashOf("12")))
	require.NoError(t, err)

	title := "  Pilot (final)  "
	released := true
	status := enums.ScriptUploadStatusProcessing
	updated, err := svc.Update(ctx, user, created.ID, UpdateInput{Title: &title, Released: &released, UploadStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, "Pilot (final)", updated.Title)
	assert.True(t, updated.Released)
	assert.Equal(t, enums.ScriptUploadStatusProcessing, updated.UploadStatus)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = svc.Update(ctx, types.NewObjectID(), created.ID, UpdateInput{Title: &title})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	other := types.NewObjectID()
	_, err = svc.Update(ctx, user, created.ID, UpdateInput{UserID: &other})
	assert.Equal(t, "user", schema.FieldOf(err))

	blank := " "
	_, err = svc.Update(ctx, user, created.ID, UpdateInput{Filmmaker: &blank})
	assert.Equal(t, "filmmaker", schema.FieldOf(err))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := types.NewObjectID()

	created, err := svc.Create(ctx, validInput(user, hashOf("77")))
	require.NoError(t, err)

	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, types.NewObjectID(), created.ID), pkgerrors.CodeForbidden))
	require.NoError(t, svc.Delete(ctx, user, created.ID))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, user, created.ID), pkgerrors.CodeNotFound))

	_, err = svc.Create(ctx, validInput(user, hashOf("77")))
	require.NoError(t, err, "deleting frees the hash")
}
