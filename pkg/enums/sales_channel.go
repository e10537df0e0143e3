package enums

import "fmt"

// SalesChannel separates the retail storefront from the wholesale/bundle variant.
type SalesChannel string

const (
	SalesChannelRetail    SalesChannel = "retail"
	SalesChannelWholesale SalesChannel = "wholesale"
)

var validSalesChannels = []SalesChannel{
	SalesChannelRetail,
	SalesChannelWholesale,
}

// String implements fmt.Stringer.
func (s SalesChannel) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalesChannel.
func (s SalesChannel) IsValid() bool {
	for _, candidate := range validSalesChannels {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalesChannel converts the raw string to SalesChannel.
func ParseSalesChannel(value string) (SalesChannel, error) {
	for _, candidate := range validSalesChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales channel %q", value)
}
