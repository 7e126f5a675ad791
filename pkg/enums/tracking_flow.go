package enums

import "fmt"

// TrackingFlow discriminates which tracking history a status event belongs to.
type TrackingFlow string

const (
	TrackingFlowDelivery TrackingFlow = "delivery"
	TrackingFlowReturn   TrackingFlow = "return"
)

var validTrackingFlows = []TrackingFlow{
	TrackingFlowDelivery,
	TrackingFlowReturn,
}

// String implements fmt.Stringer.
func (t TrackingFlow) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingFlow.
func (t TrackingFlow) IsValid() bool {
	for _, candidate := range validTrackingFlows {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrackingFlow converts raw input into a TrackingFlow.
func ParseTrackingFlow(value string) (TrackingFlow, error) {
	for _, candidate := range validTrackingFlows {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking flow %q", value)
}
