package models

import (
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
)

// Script is an uploaded screenplay. Script.ContentHash deduplicates uploads.
type Script struct {
	ID           types.ObjectID           `gorm:"column:id;primaryKey" json:"id"`
	UserID       types.ObjectID           `gorm:"column:user_id;not null;index:idx_scripts_user_created,priority:1" json:"user"`
	Title        string                   `gorm:"column:title;not null" json:"title"`
	Filmmaker    string                   `gorm:"column:filmmaker;not null" json:"filmmaker"`
	Project      string                   `gorm:"column:project;not null;default:''" json:"project"`
	Category     string                   `gorm:"column:category;not null;default:''" json:"category"`
	Description  string                   `gorm:"column:description;not null;default:''" json:"description"`
	Script       types.HashedStorageRef   `gorm:"embedded;embeddedPrefix:script_" json:"script"`
	UploadStatus enums.ScriptUploadStatus `gorm:"column:upload_status;not null;default:'ready'" json:"uploadStatus"`
	Released     bool                     `gorm:"column:released;not null;default:false" json:"released"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime;index:idx_scripts_user_created,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (s *Script) BeforeCreate(*gorm.DB) error {
	if s.ID.IsZero() {
		s.ID = types.NewObjectID()
	}
	return nil
}
