package releases

import (
	"time"

	"github.com/angelmondragon/creatorhub-backend/pkg/db/models"
	"github.com/angelmondragon/creatorhub-backend/pkg/enums"
	"github.com/angelmondragon/creatorhub-backend/pkg/pagination"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

// CreateInput carries the caller-supplied attributes of a new release.
type CreateInput struct {
	CreatorID            types.ObjectID      `json:"creator"`
	Name                 string              `json:"name"`
	Type                 enums.ReleaseType   `json:"type"`
	Tracks               []types.ObjectID    `json:"tracks"`
	ReleaseDate          *time.Time          `json:"releaseDate"`
	Artwork              *types.StorageRef   `json:"artwork"`
	Description          string              `json:"description"`
	Status               enums.ReleaseStatus `json:"status"`
	DistributionChannels []string            `json:"distributionChannels"`
	Metadata             map[string]any      `json:"metadata"`
}

// UpdateInput is a partial update. Nil pointers leave the stored value as is.
type UpdateInput struct {
	CreatorID            *types.ObjectID                  `json:"creator"`
	Name                 *string                          `json:"name"`
	Type                 *enums.ReleaseType               `json:"type"`
	Tracks               *[]types.ObjectID                `json:"tracks"`
	ReleaseDate          *time.Time                       `json:"releaseDate"`
	Artwork              types.Nullable[types.StorageRef] `json:"artwork"`
	Description          *string                          `json:"description"`
	Status               *enums.ReleaseStatus             `json:"status"`
	DistributionChannels *[]string                        `json:"distributionChannels"`
	Metadata             *map[string]any                  `json:"metadata"`
}

// ListResult is one page of releases.
type ListResult = pagination.Page[models.Release]

// PublishResult summarizes one pass of the scheduled release publisher.
type PublishResult struct {
	Due       int
	Published int
	Skipped   int
}

func cursorOf(r models.Release) pagination.Cursor {
	return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}
