package enums

import "fmt"

// DonationStatus tracks the payment lifecycle of a donation.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
	DonationStatusRefunded  DonationStatus = "refunded"
)

var validDonationStatuss = []DonationStatus{
	DonationStatusPending,
	DonationStatusCompleted,
	DonationStatusFailed,
	DonationStatusRefunded,
}

// String returns the literal string for the value.
func (v DonationStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v DonationStatus) IsValid() bool {
	for _, candidate := range validDonationStatuss {
		if candidate == v {
			return true
		}
	}
	return false
}

// DonationStatusValues returns the accepted values in declaration order.
func DonationStatusValues() []string {
	out := make([]string, len(validDonationStatuss))
	for i, candidate := range validDonationStatuss {
		out[i] = string(candidate)
	}
	return out
}

// ParseDonationStatus converts raw input into a DonationStatus.
func ParseDonationStatus(value string) (DonationStatus, error) {
	for _, candidate := range validDonationStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid donation status %q", value)
}

// donationLattice lists the direct successors of each status. failed and
// refunded are terminal.
var donationLattice = map[DonationStatus][]DonationStatus{
	DonationStatusPending:   {DonationStatusCompleted, DonationStatusFailed},
	DonationStatusCompleted: {DonationStatusRefunded},
	DonationStatusFailed:    {},
	DonationStatusRefunded:  {},
}

// IsTerminal reports whether no transition leaves the status.
func (v DonationStatus) IsTerminal() bool {
	return len(donationLattice[v]) == 0
}

// CanTransitionTo reports whether next is a direct successor of v.
func (v DonationStatus) CanTransitionTo(next DonationStatus) bool {
	for _, candidate := range donationLattice[v] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Reaches reports whether next is v itself or lies somewhere ahead of v in
// the lattice. A status that does not reach next would have to move backward.
func (v DonationStatus) Reaches(next DonationStatus) bool {
	if v == next {
		return true
	}
	for _, candidate := range donationLattice[v] {
		if candidate.Reaches(next) {
			return true
		}
	}
	return false
}

// DonationStatusLattice returns a copy of the transition table.
func DonationStatusLattice() map[DonationStatus][]DonationStatus {
	out := make(map[DonationStatus][]DonationStatus, len(donationLattice))
	for from, to := range donationLattice {
		out[from] = append([]DonationStatus(nil), to...)
	}
	return out
}
