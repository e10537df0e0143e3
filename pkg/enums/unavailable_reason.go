package enums

import "fmt"

// UnavailableReason classifies why the sanitizer rejected a cart line.
type UnavailableReason string

const (
	UnavailableReasonProductNotFound UnavailableReason = "PRODUCT_NOT_FOUND"
	UnavailableReasonSizeOutOfStock  UnavailableReason = "SIZE_OUT_OF_STOCK"
)

var validUnavailableReasons = []UnavailableReason{
	UnavailableReasonProductNotFound,
	UnavailableReasonSizeOutOfStock,
}

// IsValid reports whether the value matches the canonical reason enum.
func (u UnavailableReason) IsValid() bool {
	for _, candidate := range validUnavailableReasons {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnavailableReason converts the raw string to UnavailableReason.
func ParseUnavailableReason(value string) (UnavailableReason, error) {
	for _, candidate := range validUnavailableReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unavailable reason %q", value)
}
