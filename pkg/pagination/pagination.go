// Package pagination implements keyset paging over (created_at, id), newest
// first. Cursors are opaque URL-safe tokens.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/creatorhub-backend/pkg/types"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorVersion = "c1"
)

var errMalformedCursor = errors.New("malformed cursor")

// Params is the caller's page request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the position of the last row a client has seen.
type Cursor struct {
	CreatedAt time.Time
	ID        types.ObjectID
}

// Page is one slice of a feed.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// NormalizeLimit clamps limit to (0, MaxLimit], substituting DefaultLimit
// for non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is the row count to fetch so NewPage can tell whether a
// further page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Scope orders a query newest first, starts it after cursor when one is
// given and fetches one row past the page size.
func Scope(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
		return query.Order("created_at DESC, id DESC").Limit(LimitWithBuffer(limit))
	}
}

// NewPage drops the look-ahead row fetched by Scope and, when it was
// present, points NextCursor at the last row kept.
func NewPage[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		if rows == nil {
			rows = []T{}
		}
		return Page[T]{Items: rows}
	}
	kept := rows[:limit]
	return Page[T]{Items: kept, NextCursor: EncodeCursor(cursorOf(kept[limit-1]))}
}

func EncodeCursor(c Cursor) string {
	raw := strings.Join([]string{
		cursorVersion,
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.ID.Hex(),
	}, ".")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank token.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCursor, err)
	}
	parts := strings.Split(string(raw), ".")
	// RFC3339Nano may itself contain a dot before the fraction.
	if len(parts) < 3 || parts[0] != cursorVersion {
		return nil, errMalformedCursor
	}
	stamp := strings.Join(parts[1:len(parts)-1], ".")
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", errMalformedCursor, err)
	}
	id, err := types.ParseObjectID(parts[len(parts)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", errMalformedCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
