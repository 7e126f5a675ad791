package enums

import "fmt"

// PartnerAvailability describes whether a delivery partner can take new offers.
type PartnerAvailability string

const (
	PartnerAvailable   PartnerAvailability = "available"
	PartnerUnavailable PartnerAvailability = "unavailable"
)

var validPartnerAvailabilities = []PartnerAvailability{
	PartnerAvailable,
	PartnerUnavailable,
}

// String implements fmt.Stringer.
func (p PartnerAvailability) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartnerAvailability.
func (p PartnerAvailability) IsValid() bool {
	for _, candidate := range validPartnerAvailabilities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartnerAvailability converts raw input into a PartnerAvailability.
func ParsePartnerAvailability(value string) (PartnerAvailability, error) {
	for _, candidate := range validPartnerAvailabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partner availability %q", value)
}
