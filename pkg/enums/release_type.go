package enums

import "fmt"

// ReleaseType classifies a musical release.
type ReleaseType string

const (
	ReleaseTypeSingle      ReleaseType = "single"
	ReleaseTypeEP          ReleaseType = "ep"
	ReleaseTypeAlbum       ReleaseType = "album"
	ReleaseTypeCompilation ReleaseType = "compilation"
)

var validReleaseTypes = []ReleaseType{
	ReleaseTypeSingle,
	ReleaseTypeEP,
	ReleaseTypeAlbum,
	ReleaseTypeCompilation,
}

// String returns the literal string for the value.
func (v ReleaseType) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v ReleaseType) IsValid() bool {
	for _, candidate := range validReleaseTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ReleaseTypeValues returns the accepted values in declaration order.
func ReleaseTypeValues() []string {
	out := make([]string, len(validReleaseTypes))
	for i, candidate := range validReleaseTypes {
		out[i] = string(candidate)
	}
	return out
}

// ParseReleaseType converts raw input into a ReleaseType.
func ParseReleaseType(value string) (ReleaseType, error) {
	for _, candidate := range validReleaseTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release type %q", value)
}
