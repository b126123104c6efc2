package enums

import "fmt"

// PhotoUploadStatus reports the processing state of an uploaded photograph.
type PhotoUploadStatus string

const (
	PhotoUploadStatusProcessing PhotoUploadStatus = "processing"
	PhotoUploadStatusReady      PhotoUploadStatus = "ready"
	PhotoUploadStatusFailed     PhotoUploadStatus = "failed"
)

var validPhotoUploadStatuss = []PhotoUploadStatus{
	PhotoUploadStatusProcessing,
	PhotoUploadStatusReady,
	PhotoUploadStatusFailed,
}

// String returns the literal string for the value.
func (v PhotoUploadStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v PhotoUploadStatus) IsValid() bool {
	for _, candidate := range validPhotoUploadStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// PhotoUploadStatusValues returns the accepted values in declaration order.
func PhotoUploadStatusValues() []string {
	out := make([]string, len(validPhotoUploadStatuss))
	for i, candidate := range validPhotoUploadStatuss {
		out[i] = string(candidate)
	}
	return out
}

// ParsePhotoUploadStatus converts raw input into a PhotoUploadStatus.
func ParsePhotoUploadStatus(value string) (PhotoUploadStatus, error) {
	for _, candidate := range validPhotoUploadStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid photo upload status %q", value)
}
