package models

import (
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// PhotoSettings are the camera settings recorded with a photo.
type PhotoSettings struct {
	ISO          *int   `gorm:"column:iso" json:"iso"`
	Aperture     string `gorm:"column:aperture;not null;default:''" json:"aperture"`
	ShutterSpeed string `gorm:"column:shutter_speed;not null;default:''" json:"shutterSpeed"`
	FocalLength  string `gorm:"column:focal_length;not null;default:''" json:"focalLength"`
}

// Photo is an uploaded photograph. Image.ContentHash deduplicates uploads.
type Photo struct {
	ID              types.ObjectID          `gorm:"column:id;primaryKey" json:"id"`
	UserID          types.ObjectID          `gorm:"column:user_id;not null;index:idx_photos_user_created,priority:1" json:"user"`
	Title           string                  `gorm:"column:title;not null" json:"title"`
	Photographer    string                  `gorm:"column:photographer;not null" json:"photographer"`
	PhotoCollection string                  `gorm:"column:photo_collection;not null;default:''" json:"photoCollection"`
	Category        enums.PhotoCategory     `gorm:"column:category;not null" json:"category"`
	CaptureDate     *time.Time              `gorm:"column:capture_date" json:"captureDate"`
	Location        string                  `gorm:"column:location;not null;default:''" json:"location"`
	Description     string                  `gorm:"column:description;not null;default:''" json:"description"`
	Image           types.HashedStorageRef  `gorm:"embedded;embeddedPrefix:image_" json:"image"`
	Width           *int                    `gorm:"column:width" json:"width"`
	Height          *int                    `gorm:"column:height" json:"height"`
	Camera          string                  `gorm:"column:camera;not null;default:''" json:"camera"`
	Settings        PhotoSettings           `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	Released        bool                    `gorm:"column:released;not null;default:false" json:"released"`
	UploadStatus    enums.PhotoUploadStatus `gorm:"column:upload_status;not null;default:'processing'" json:"uploadStatus"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime;index:idx_photos_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Photo) BeforeCreate(*gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = types.NewObjectID()
	}
	return nil
}
