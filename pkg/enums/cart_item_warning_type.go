package enums

import "fmt"

// CartItemWarningType labels non-fatal notices attached to a cart line.
type CartItemWarningType string

const (
	CartItemWarningTypeClampedToStock CartItemWarningType = "clamped_to_stock"
	CartItemWarningTypePriceChanged   CartItemWarningType = "price_changed"
)

var validCartItemWarningTypes = []CartItemWarningType{
	CartItemWarningTypeClampedToStock,
	CartItemWarningTypePriceChanged,
}

// IsValid reports whether the value is a known CartItemWarningType.
func (c CartItemWarningType) IsValid() bool {
	for _, candidate := range validCartItemWarningTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartItemWarningType converts the raw string to CartItemWarningType.
func ParseCartItemWarningType(value string) (CartItemWarningType, error) {
	for _, candidate := range validCartItemWarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart item warning type %q", value)
}
