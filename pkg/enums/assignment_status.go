package enums

import "fmt"

// AssignmentStatus tracks the offer/accept/reject sub-lifecycle of a
// delivery assignment.
type AssignmentStatus string

const (
	AssignmentStatusOffered  AssignmentStatus = "offered"
	AssignmentStatusAccepted AssignmentStatus = "accepted"
	AssignmentStatusRejected AssignmentStatus = "rejected"
	AssignmentStatusExpired  AssignmentStatus = "expired"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusOffered,
	AssignmentStatusAccepted,
	AssignmentStatusRejected,
	AssignmentStatusExpired,
}

// String implements fmt.Stringer.
func (a AssignmentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (a AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsActive reports whether the assignment still binds the partner to the order.
func (a AssignmentStatus) IsActive() bool {
	return a == AssignmentStatusOffered || a == AssignmentStatusAccepted
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
