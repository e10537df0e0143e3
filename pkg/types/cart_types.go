package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SizeStock maps a size label to its available quantity, stored as JSONB.
type SizeStock map[string]int

// Available returns the stock for the given size, zero when absent.
func (s SizeStock) Available(size string) int {
	if s == nil {
		return 0
	}
	qty := s[size]
	if qty < 0 {
		return 0
	}
	return qty
}

// AnyInStock reports whether at least one size has positive stock.
func (s SizeStock) AnyInStock() bool {
	for _, qty := range s {
		if qty > 0 {
			return true
		}
	}
	return false
}

// Value serializes the stock map to JSON.
func (s SizeStock) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan decodes JSONB into the stock map.
func (s *SizeStock) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded SizeStock
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}

// CartItemWarning captures a non-fatal notice attached to a cart line.
type CartItemWarning struct {
	Type    enums.CartItemWarningType `json:"type"`
	Message string                    `json:"message"`
}

// CartItemWarnings is a slice marshaled as JSONB.
type CartItemWarnings []CartItemWarning

// Value serializes the warnings to JSON.
func (c CartItemWarnings) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan decodes JSONB into the warning slice.
func (c *CartItemWarnings) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded CartItemWarnings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// UnavailableItem is produced only by the cart sanitizer. Its presence for a
// (product, size) key blocks checkout until the customer removes the line.
type UnavailableItem struct {
	ProductID uuid.UUID               `json:"product_id"`
	Size      string                  `json:"size"`
	Reason    enums.UnavailableReason `json:"reason"`
	Message   string                  `json:"message"`
}

// UnavailableItems persist the sanitizer partition as JSONB on the cart record.
type UnavailableItems []UnavailableItem

// Contains reports whether the (product, size) key carries a flag.
func (u UnavailableItems) Contains(productID uuid.UUID, size string) bool {
	for i := range u {
		if u[i].ProductID == productID && u[i].Size == size {
			return true
		}
	}
	return false
}

// Value serializes the unavailable set to JSON.
func (u UnavailableItems) Value() (driver.Value, error) {
	if u == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(u)
}

// Scan decodes JSONB into the unavailable set.
func (u *UnavailableItems) Scan(value interface{}) error {
	if value == nil {
		*u = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded UnavailableItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*u = decoded
	return nil
}

// AppliedCombo is the immutable snapshot captured when a combo price beats the
// summed individual prices. Display-only; re-verified at order creation.
type AppliedCombo struct {
	ComboID       uuid.UUID       `json:"combo_id"`
	Name          string          `json:"name"`
	ComboPrice    decimal.Decimal `json:"combo_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Savings       decimal.Decimal `json:"savings"`
	ItemCount     int             `json:"item_count"`
	CapturedAt    time.Time       `json:"captured_at"`
}

// Value serializes the combo snapshot to JSON.
func (a *AppliedCombo) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes a JSON object into the combo snapshot.
func (a *AppliedCombo) Scan(value interface{}) error {
	if value == nil {
		*a = AppliedCombo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

// AppliedCoupon is the (code, discount) pair persisted per session.
type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Value serializes the coupon pair to JSON.
func (a *AppliedCoupon) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes a JSON object into the coupon pair.
func (a *AppliedCoupon) Scan(value interface{}) error {
	if value == nil {
		*a = AppliedCoupon{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
