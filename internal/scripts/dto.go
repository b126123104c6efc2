package scripts

import (
	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// CreateInput carries the attributes of an uploaded script.
type CreateInput struct {
	UserID       types.ObjectID           `json:"user"`
	Title        string                   `json:"title"`
	Filmmaker    string                   `json:"filmmaker"`
	Project      string                   `json:"project"`
	Category     string                   `json:"category"`
	Description  string                   `json:"description"`
	Script       types.HashedStorageRef   `json:"script"`
	UploadStatus enums.ScriptUploadStatus `json:"uploadStatus"`
	Released     bool                     `json:"released"`
}

// UpdateInput is a partial update. Nil pointers leave the stored value as is.
type UpdateInput struct {
	UserID       *types.ObjectID           `json:"user"`
	Title        *string                   `json:"title"`
	Filmmaker    *string                   `json:"filmmaker"`
	Project      *string                   `json:"project"`
	Category     *string                   `json:"category"`
	Description  *string                   `json:"description"`
	Script       *types.HashedStorageRef   `json:"script"`
	UploadStatus *enums.ScriptUploadStatus `json:"uploadStatus"`
	Released     *bool                     `json:"released"`
}

// ListResult is one page of scripts.
type ListResult = pagination.Page[models.Script]

func cursorOf(s models.Script) pagination.Cursor {
	return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
}
