// Package schema holds the validation rules shared by every persisted entity:
// trimming, required fields, enumerations and embedded storage references.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/creatorhub-backend/pkg/errors"
	"github.com/angelmondragon/creatorhub-backend/pkg/types"
	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Content hashes are bare lowercase hex SHA-256 digests. The builtin
	// hexadecimal rule also accepts a 0x prefix.
	_ = v.RegisterValidation("sha256hex", func(fl validator.FieldLevel) bool {
		return sha256Hex.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "-" {
			return ""
		}
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validator exposes the shared validator so HTTP decoding reports the same
// field names as the services.
func Validator() *validator.Validate {
	return validate
}

// Violation describes one rejected field.
type Violation struct {
	Field    string   `json:"field"`
	Reason   string   `json:"reason"`
	Accepted []string `json:"accepted,omitempty"`
}

// Checker collects violations in the order they are found.
type Checker struct {
	violations []Violation
}

// Add records a violation for field.
func (c *Checker) Add(field, reason string) {
	c.violations = append(c.violations, Violation{Field: field, Reason: reason})
}

// Required rejects values that are empty after trimming.
func (c *Checker) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.Add(field, "is required")
	}
}

// RequiredID rejects the zero object id.
func (c *Checker) RequiredID(field string, id types.ObjectID) {
	if id.IsZero() {
		c.Add(field, "is required")
	}
}

// Enum rejects values outside the accepted set.
func (c *Checker) Enum(field, value string, valid bool, accepted []string) {
	if valid {
		return
	}
	c.violations = append(c.violations, Violation{
		Field:    field,
		Reason:   fmt.Sprintf("must be one of %s", strings.Join(accepted, ", ")),
		Accepted: accepted,
	})
}

// NonNegative rejects negative integers.
func (c *Checker) NonNegative(field string, value int64) {
	if value < 0 {
		c.Add(field, "must be greater than or equal to 0")
	}
}

// Var checks a single value against a validator tag such as "email" or
// "iso4217".
func (c *Checker) Var(field string, value any, tag, reason string) {
	if err := validate.Var(value, tag); err != nil {
		c.Add(field, reason)
	}
}

// Struct runs the struct-tag rules of value and reports violations under
// prefix, e.g. "image.contentHash".
func (c *Checker) Struct(prefix string, value any) {
	err := validate.Struct(value)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.Add(prefix, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if prefix != "" {
			field = prefix + "." + field
		}
		c.Add(field, message(fe))
	}
}

// message turns a failed struct-tag rule into reason text.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "sha256hex":
		return "must be 64 lowercase hex characters"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "iso4217":
		return "must be an ISO-4217 currency code"
	default:
		return fmt.Sprintf("failed the %s rule", fe.Tag())
	}
}

// StorageRef validates an embedded blob reference.
func (c *Checker) StorageRef(prefix string, ref types.StorageRef) {
	c.Struct(prefix, ref)
}

// HashedStorageRef validates an embedded blob reference. When hashRequired
// is set the content hash must be present.
func (c *Checker) HashedStorageRef(prefix string, ref types.HashedStorageRef, hashRequired bool) {
	if hashRequired && ref.ContentHash == nil {
		c.Add(prefix+".contentHash", "is required")
	}
	c.Struct(prefix, ref)
}

// NewViolation builds a validation error for a single field.
func NewViolation(field, reason string) error {
	var c Checker
	c.Add(field, reason)
	return c.Err()
}

// Violations returns the collected violations.
func (c *Checker) Violations() []Violation {
	return append([]Violation(nil), c.violations...)
}

// Err returns a VALIDATION_ERROR naming every rejected field, or nil.
func (c *Checker) Err() error {
	if len(c.violations) == 0 {
		return nil
	}
	first := c.violations[0]
	fields := make([]string, 0, len(c.violations))
	for _, v := range c.violations {
		fields = append(fields, v.Field)
	}
	details := map[string]any{
		"field":      first.Field,
		"violations": c.Violations(),
	}
	if len(first.Accepted) > 0 {
		details["accepted"] = first.Accepted
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))).WithDetails(details)
}

// Trim returns value without surrounding whitespace.
func Trim(value string) string {
	return strings.TrimSpace(value)
}

// TrimPtr trims the pointed-to value. Nil stays nil.
func TrimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// FieldOf extracts the first rejected field from a validation error.
func FieldOf(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	field, _ := details["field"].(string)
	return field
}

// AcceptedOf extracts the accepted enumeration set from a validation error.
func AcceptedOf(err error) []string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	accepted, _ := details["accepted"].([]string)
	return accepted
}
