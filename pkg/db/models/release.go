package models

import (
	"time"

	dbtypes "github.com/angelmondragon/creatorhub-backend/pkg/db/types"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Release is a musical release owned by its creator.
type Release struct {
	ID                   types.ObjectID              `gorm:"column:id;primaryKey" json:"id"`
	CreatorID            types.ObjectID              `gorm:"column:creator;not null;index:idx_releases_creator_created,priority:1" json:"creator"`
	Name                 string                      `gorm:"column:name;not null" json:"name"`
	Type                 enums.ReleaseType           `gorm:"column:type;not null;default:'single'" json:"type"`
	Tracks               dbtypes.ObjectIDArray       `gorm:"column:tracks;not null" json:"tracks"`
	ReleaseDate          time.Time                   `gorm:"column:release_date;not null;index:idx_releases_release_date" json:"releaseDate"`
	Artwork              *types.StorageRef           `gorm:"embedded;embeddedPrefix:artwork_" json:"artwork,omitempty"`
	Description          string                      `gorm:"column:description;not null;default:''" json:"description"`
	Status               enums.ReleaseStatus         `gorm:"column:status;not null;default:'draft';index:idx_releases_status" json:"status"`
	DistributionChannels datatypes.JSONSlice[string] `gorm:"column:distribution_channels" json:"distributionChannels"`
	Metadata             datatypes.JSONMap           `gorm:"column:metadata" json:"metadata"`
	CreatedAt            time.Time                   `gorm:"column:created_at;autoCreateTime;index:idx_releases_creator_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt            time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (r *Release) BeforeCreate(*gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = types.NewObjectID()
	}
	return nil
}

// AfterFind drops an artwork reference whose columns are all empty.
func (r *Release) AfterFind(*gorm.DB) error {
	if r.Artwork != nil && r.Artwork.IsEmpty() {
		r.Artwork = nil
	}
	return nil
}
