package enums

import "fmt"

// ReturnStatus tracks the return flow of an order once a return is requested.
type ReturnStatus string

const (
	ReturnStatusPendingPickup     ReturnStatus = "pending_pickup"
	ReturnStatusPickedUpForReturn ReturnStatus = "picked_up_for_return"
	ReturnStatusInTransit         ReturnStatus = "return_in_transit"
	ReturnStatusCompleted         ReturnStatus = "return_completed"
	ReturnStatusFailed            ReturnStatus = "return_failed"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusPendingPickup,
	ReturnStatusPickedUpForReturn,
	ReturnStatusInTransit,
	ReturnStatusCompleted,
	ReturnStatusFailed,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return flow ends at this status.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusCompleted || r == ReturnStatusFailed
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
