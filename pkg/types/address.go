package types

import (
	"fmt"
	"strings"
)

// Address is the delivery destination captured at checkout, persisted as JSONB.
type Address struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      string  `json:"phone"`
}

// Validate checks the fields needed to compute shipping and deliver an order.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if len(strings.TrimSpace(a.PostalCode)) != 6 {
		return fmt.Errorf("address: postal code must be 6 digits")
	}
	return nil
}
