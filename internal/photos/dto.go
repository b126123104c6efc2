package photos

import (
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// SettingsInput carries camera settings. A nil ISO is stored as null.
type SettingsInput struct {
	ISO          *int   `json:"iso"`
	Aperture     string `json:"aperture"`
	ShutterSpeed string `json:"shutterSpeed"`
	FocalLength  string `json:"focalLength"`
}

// CreateInput carries the attributes of an uploaded photo.
type CreateInput struct {
	UserID          types.ObjectID          `json:"user"`
	Title           string                  `json:"title"`
	Photographer    string                  `json:"photographer"`
	PhotoCollection string                  `json:"photoCollection"`
	Category        enums.PhotoCategory     `json:"category"`
	CaptureDate     *time.Time              `json:"captureDate"`
	Location        string                  `json:"location"`
	Description     string                  `json:"description"`
	Image           types.HashedStorageRef  `json:"image"`
	Width           *int                    `json:"width"`
	Height          *int                    `json:"height"`
	Camera          string                  `json:"camera"`
	Settings        SettingsInput           `json:"settings"`
	Released        bool                    `json:"released"`
	UploadStatus    enums.PhotoUploadStatus `json:"uploadStatus"`
}

// SettingsUpdate is a partial update of the camera settings.
type SettingsUpdate struct {
	ISO          types.Nullable[int] `json:"iso"`
	Aperture     *string             `json:"aperture"`
	ShutterSpeed *string             `json:"shutterSpeed"`
	FocalLength  *string             `json:"focalLength"`
}

// UpdateInput is a partial update. Nullable fields distinguish an absent
// value from an explicit null.
type UpdateInput struct {
	UserID          *types.ObjectID           `json:"user"`
	Title           *string                   `json:"title"`
	Photographer    *string                   `json:"photographer"`
	PhotoCollection *string                   `json:"photoCollection"`
	Category        *enums.PhotoCategory      `json:"category"`
	CaptureDate     types.Nullable[time.Time] `json:"captureDate"`
	Location        *string                   `json:"location"`
	Description     *string                   `json:"description"`
	Image           *types.HashedStorageRef   `json:"image"`
	Width           types.Nullable[int]       `json:"width"`
	Height          types.Nullable[int]       `json:"height"`
	Camera          *string                   `json:"camera"`
	Settings        *SettingsUpdate           `json:"settings"`
	Released        *bool                     `json:"released"`
	UploadStatus    *enums.PhotoUploadStatus  `json:"uploadStatus"`
}

// ListResult is one page of photos.
type ListResult = pagination.Page[models.Photo]

func cursorOf(p models.Photo) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}
