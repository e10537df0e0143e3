package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/config"
)

var hundred = decimal.NewFromInt(100)

// Calculator turns a cart's priced lines into the authoritative order totals.
// Every amount is recomputed server-side; client previews are never trusted.
type Calculator struct {
	shipping   config.ShippingConfig
	gstPercent decimal.Decimal
}

// Quote is the full checkout amount breakdown.
type Quote struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ComboSavings   decimal.Decimal `json:"combo_savings"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	ShippingLabel  string          `json:"shipping_label"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	Total          decimal.Decimal `json:"total"`
}

// NewCalculator builds a calculator from the shipping and tax policy.
func NewCalculator(shipping config.ShippingConfig, gstPercent decimal.Decimal) *Calculator {
	if gstPercent.IsNegative() {
		gstPercent = decimal.Zero
	}
	return &Calculator{shipping: shipping, gstPercent: gstPercent}
}

// Quote computes shipping, GST and the grand total. Combo and coupon amounts
// come off the subtotal before shipping is decided, so the free-shipping
// threshold applies to what the customer actually pays for goods.
func (c *Calculator) Quote(subtotal, comboSavings, couponDiscount decimal.Decimal, postalCode string) Quote {
	goods := subtotal.Sub(comboSavings).Sub(couponDiscount)
	if goods.IsNegative() {
		goods = decimal.Zero
	}

	fee, label := c.shippingFor(goods, postalCode)
	gst := goods.Mul(c.gstPercent).Div(hundred).Round(2)

	return Quote{
		Subtotal:       subtotal,
		ComboSavings:   comboSavings,
		CouponDiscount: couponDiscount,
		ShippingFee:    fee,
		ShippingLabel:  label,
		GSTAmount:      gst,
		Total:          goods.Add(fee).Add(gst),
	}
}

func (c *Calculator) shippingFor(goods decimal.Decimal, postalCode string) (decimal.Decimal, string) {
	if goods.GreaterThanOrEqual(c.shipping.FreeOverSubtotal) {
		return decimal.Zero, c.shipping.FreeShippingLabel
	}

	postalCode = strings.TrimSpace(postalCode)
	for _, prefix := range c.shipping.RemoteZonePrefixes() {
		if strings.HasPrefix(postalCode, prefix) {
			return c.shipping.RemoteZoneFee, c.shipping.RemoteLabel
		}
	}
	return c.shipping.BaseFee, c.shipping.StandardLabel
}
