package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID is the 96-bit document identifier shared by every entity. It is
// rendered as 24 lowercase hex characters on the wire and in storage.
type ObjectID primitive.ObjectID

// NilObjectID is the zero identifier.
var NilObjectID ObjectID

// NewObjectID allocates a fresh identifier.
func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID())
}

// ParseObjectID converts a 24-character hex string into an ObjectID.
func ParseObjectID(value string) (ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return NilObjectID, fmt.Errorf("invalid object id %q: %w", value, err)
	}
	return ObjectID(oid), nil
}

// Hex returns the lowercase hex rendering.
func (id ObjectID) Hex() string {
	return primitive.ObjectID(id).Hex()
}

func (id ObjectID) String() string {
	return id.Hex()
}

// IsZero reports whether the identifier is unset.
func (id ObjectID) IsZero() bool {
	return primitive.ObjectID(id).IsZero()
}

// Timestamp returns the creation second embedded in the identifier.
func (id ObjectID) Timestamp() time.Time {
	return primitive.ObjectID(id).Timestamp()
}

// Value implements driver.Valuer. Zero identifiers are stored as NULL.
func (id ObjectID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.Hex(), nil
}

// Scan implements sql.Scanner.
func (id *ObjectID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*id = NilObjectID
		return nil
	case string:
		return id.scanString(v)
	case []byte:
		return id.scanString(string(v))
	default:
		return fmt.Errorf("object id: unsupported scan type %T", value)
	}
}

func (id *ObjectID) scanString(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*id = NilObjectID
		return nil
	}
	parsed, err := ParseObjectID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// GormDataType pins the column type used by AutoMigrate.
func (ObjectID) GormDataType() string {
	return "char(24)"
}

// MarshalJSON implements json.Marshaler.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.Hex())
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = NilObjectID
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	return id.scanString(raw)
}
