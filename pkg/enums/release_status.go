package enums

import "fmt"

// ReleaseStatus tracks the publication lifecycle of a release.
type ReleaseStatus string

const (
	ReleaseStatusDraft     ReleaseStatus = "draft"
	ReleaseStatusScheduled ReleaseStatus = "scheduled"
	ReleaseStatusReleased  ReleaseStatus = "released"
	ReleaseStatusArchived  ReleaseStatus = "archived"
)

var validReleaseStatuss = []ReleaseStatus{
	ReleaseStatusDraft,
	ReleaseStatusScheduled,
	ReleaseStatusReleased,
	ReleaseStatusArchived,
}

// String returns the literal string for the value.
func (v ReleaseStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v ReleaseStatus) IsValid() bool {
	for _, candidate := range validReleaseStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// ReleaseStatusValues returns the accepted values in declaration order.
func ReleaseStatusValues() []string {
	out := make([]string, len(validReleaseStatuss))
	for i, candidate := range validReleaseStatuss {
		out[i] = string(candidate)
	}
	return out
}

// ParseReleaseStatus converts raw input into a ReleaseStatus.
func ParseReleaseStatus(value string) (ReleaseStatus, error) {
	for _, candidate := range validReleaseStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release status %q", value)
}

var releaseStatusFlow = map[ReleaseStatus][]ReleaseStatus{
	ReleaseStatusDraft:     {ReleaseStatusScheduled, ReleaseStatusReleased, ReleaseStatusArchived},
	ReleaseStatusScheduled: {ReleaseStatusDraft, ReleaseStatusReleased, ReleaseStatusArchived},
	ReleaseStatusReleased:  {ReleaseStatusArchived},
	ReleaseStatusArchived:  {},
}

// CanTransitionTo reports whether an owner may move a release from v to next.
// Staying in the same status is always allowed.
func (v ReleaseStatus) CanTransitionTo(next ReleaseStatus) bool {
	if v == next {
		return true
	}
	for _, candidate := range releaseStatusFlow[v] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowsTrackChanges reports whether the track list is still editable.
func (v ReleaseStatus) AllowsTrackChanges() bool {
	return v == ReleaseStatusDraft || v == ReleaseStatusScheduled
}

// ReleaseStatusFlow returns a copy of the owner-driven transition table.
func ReleaseStatusFlow() map[ReleaseStatus][]ReleaseStatus {
	out := make(map[ReleaseStatus][]ReleaseStatus, len(releaseStatusFlow))
	for from, to := range releaseStatusFlow {
		out[from] = append([]ReleaseStatus(nil), to...)
	}
	return out
}
