package enums

import "fmt"

// PhotoCategory classifies an uploaded photograph.
type PhotoCategory string

const (
	PhotoCategoryPortrait  PhotoCategory = "portrait"
	PhotoCategoryLandscape PhotoCategory = "landscape"
	PhotoCategoryNature    PhotoCategory = "nature"
	PhotoCategoryUrban     PhotoCategory = "urban"
	PhotoCategoryFashion   PhotoCategory = "fashion"
	PhotoCategoryWedding   PhotoCategory = "wedding"
	PhotoCategoryEvent     PhotoCategory = "event"
	PhotoCategoryProduct   PhotoCategory = "product"
	PhotoCategoryArtistic  PhotoCategory = "artistic"
	PhotoCategoryOther     PhotoCategory = "other"
)

var validPhotoCategorys = []PhotoCategory{
	PhotoCategoryPortrait,
	PhotoCategoryLandscape,
	PhotoCategoryNature,
	PhotoCategoryUrban,
	PhotoCategoryFashion,
	PhotoCategoryWedding,
	PhotoCategoryEvent,
	PhotoCategoryProduct,
	PhotoCategoryArtistic,
	PhotoCategoryOther,
}

// String returns the literal string for the value.
func (v PhotoCategory) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v PhotoCategory) IsValid() bool {
	for _, candidate := range validPhotoCategorys {
		if candidate == v {
			return true
		}
	}
	return false
}

// PhotoCategoryValues returns the accepted values in declaration order.
func PhotoCategoryValues() []string {
	out := make([]string, len(validPhotoCategorys))
	for i, candidate := range validPhotoCategorys {
		out[i] = string(candidate)
	}
	return out
}

// ParsePhotoCategory converts raw input into a PhotoCategory.
func ParsePhotoCategory(value string) (PhotoCategory, error) {
	for _, candidate := range validPhotoCategorys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid photo category %q", value)
}
