package pricing

import (
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the customer-visible price derived from a product's base price
// and discount configuration.
type Breakdown struct {
	BasePrice            decimal.Decimal `json:"base_price"`
	OriginalDisplayPrice decimal.Decimal `json:"original_display_price"`
	DisplayPrice         decimal.Decimal `json:"display_price"`
	Discount             decimal.Decimal `json:"discount"`
	HasDiscount          bool            `json:"has_discount"`
}

// Deriver computes display prices. The shipping buffer is a fixed amount
// folded into every display price; the real destination shipping fee is
// computed separately at checkout.
type Deriver struct {
	shippingBuffer decimal.Decimal
}

// NewDeriver builds a deriver with the configured shipping buffer. Negative
// buffers are treated as zero.
func NewDeriver(shippingBuffer decimal.Decimal) *Deriver {
	if shippingBuffer.IsNegative() {
		shippingBuffer = decimal.Zero
	}
	return &Deriver{shippingBuffer: shippingBuffer}
}

// ShippingBuffer returns the configured buffer amount.
func (d *Deriver) ShippingBuffer() decimal.Decimal {
	return d.shippingBuffer
}

// Derive maps a base price and discount configuration to the display price.
// The discount applies to the buffered price, not the raw base price, so the
// advertised percentage matches the savings against the number shown.
// Pure function; discount value range validation is a data-entry concern.
func (d *Deriver) Derive(basePrice decimal.Decimal, discountType enums.DiscountType, discountValue decimal.Decimal) Breakdown {
	if basePrice.IsNegative() {
		basePrice = decimal.Zero
	}

	original := basePrice.Add(d.shippingBuffer)
	display := original

	switch discountType {
	case enums.DiscountTypePercentage:
		if discountValue.IsPositive() {
			factor := hundred.Sub(discountValue).Div(hundred)
			display = original.Mul(factor).Round(2)
		}
	case enums.DiscountTypeFlat:
		if discountValue.IsPositive() {
			display = original.Sub(discountValue)
			if display.IsNegative() {
				display = decimal.Zero
			}
		}
	}

	discount := original.Sub(display)
	return Breakdown{
		BasePrice:            basePrice,
		OriginalDisplayPrice: original,
		DisplayPrice:         display,
		Discount:             discount,
		HasDiscount:          display.LessThan(original),
	}
}

// LineTotal multiplies the display price by a quantity.
func (b Breakdown) LineTotal(qty int) decimal.Decimal {
	return b.DisplayPrice.Mul(decimal.NewFromInt(int64(qty)))
}
