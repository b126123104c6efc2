package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ObjectIDArray is an ordered list of object ids stored as a Postgres array
// literal. sqlite keeps the same literal as text.
type ObjectIDArray []types.ObjectID

func (ObjectIDArray) GormDataType() string {
	return "text"
}

// GormDBDataType uses a native array on Postgres and plain text elsewhere.
func (ObjectIDArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (a *ObjectIDArray) Scan(src any) error {
	if src == nil {
		*a = ObjectIDArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("ObjectIDArray: unsupported Scan type %T", src)
	}
}

func (a ObjectIDArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, id := range a {
		if id.IsZero() {
			return nil, fmt.Errorf("ObjectIDArray: zero id at position %d", len(parts))
		}
		parts = append(parts, id.Hex())
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// IDs returns a copy of the array as a plain slice.
func (a ObjectIDArray) IDs() []types.ObjectID {
	out := make([]types.ObjectID, len(a))
	copy(out, a)
	return out
}

func (a *ObjectIDArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = ObjectIDArray{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]types.ObjectID, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(strings.Trim(r, `"`))
		id, err := types.ParseObjectID(r)
		if err != nil {
			return fmt.Errorf("ObjectIDArray: parse %q: %w", r, err)
		}
		out = append(out, id)
	}
	*a = ObjectIDArray(out)
	return nil
}
