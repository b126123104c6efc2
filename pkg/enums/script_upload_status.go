package enums

import "fmt"

// ScriptUploadStatus reports the processing state of an uploaded script.
type ScriptUploadStatus string

const (
	ScriptUploadStatusReady      ScriptUploadStatus = "ready"
	ScriptUploadStatusProcessing ScriptUploadStatus = "processing"
	ScriptUploadStatusError      ScriptUploadStatus = "error"
)

var validScriptUploadStatuss = []ScriptUploadStatus{
	ScriptUploadStatusReady,
	ScriptUploadStatusProcessing,
	ScriptUploadStatusError,
}

// String returns the literal string for the value.
func (v ScriptUploadStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v ScriptUploadStatus) IsValid() bool {
	for _, candidate := range validScriptUploadStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// ScriptUploadStatusValues returns the accepted values in declaration order.
func ScriptUploadStatusValues() []string {
	out := make([]string, len(validScriptUploadStatuss))
	for i, candidate := range validScriptUploadStatuss {
		out[i] = string(candidate)
	}
	return out
}

// ParseScriptUploadStatus converts raw input into a ScriptUploadStatus.
func ParseScriptUploadStatus(value string) (ScriptUploadStatus, error) {
	for _, candidate := range validScriptUploadStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid script upload status %q", value)
}
