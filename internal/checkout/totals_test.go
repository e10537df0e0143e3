package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/adityakhanna/vastra-backend/pkg/config"
)

func testShippingConfig() config.ShippingConfig {
	return config.ShippingConfig{
		BaseFee:           decimal.NewFromInt(49),
		RemoteZoneFee:     decimal.NewFromInt(99),
		FreeOverSubtotal:  decimal.NewFromInt(999),
		RemoteZonePrefix:  "19,79",
		StandardLabel:     "Standard Delivery",
		RemoteLabel:       "Remote Area Delivery",
		FreeShippingLabel: "Free Shipping",
	}
}

func TestQuoteStandardShipping(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.NewFromInt(5))
	quote := calc.Quote(decimal.NewFromInt(500), decimal.Zero, decimal.Zero, "560001")

	assert.True(t, quote.ShippingFee.Equal(decimal.NewFromInt(49)))
	assert.Equal(t, "Standard Delivery", quote.ShippingLabel)
	// 5% of 500
	assert.True(t, quote.GSTAmount.Equal(decimal.NewFromInt(25)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(574)), "total %s", quote.Total)
}

func TestQuoteRemoteZoneShipping(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.Zero)
	quote := calc.Quote(decimal.NewFromInt(500), decimal.Zero, decimal.Zero, "790001")

	assert.True(t, quote.ShippingFee.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, "Remote Area Delivery", quote.ShippingLabel)
}

func TestQuoteFreeShippingOverThreshold(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.Zero)
	quote := calc.Quote(decimal.NewFromInt(1200), decimal.Zero, decimal.Zero, "790001")

	assert.True(t, quote.ShippingFee.IsZero())
	assert.Equal(t, "Free Shipping", quote.ShippingLabel)
}

func TestQuoteDiscountsApplyBeforeShippingThreshold(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.Zero)
	// 1050 gross but coupon brings goods under the free-shipping line
	quote := calc.Quote(decimal.NewFromInt(1050), decimal.Zero, decimal.NewFromInt(100), "560001")

	assert.True(t, quote.ShippingFee.Equal(decimal.NewFromInt(49)))
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(999)), "total %s", quote.Total)
}

func TestQuoteClampsOverDiscountedGoods(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.NewFromInt(5))
	quote := calc.Quote(decimal.NewFromInt(100), decimal.NewFromInt(80), decimal.NewFromInt(50), "560001")

	// goods floor at zero: only shipping remains
	assert.True(t, quote.GSTAmount.IsZero())
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(49)), "total %s", quote.Total)
}

func TestQuoteRoundsGST(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(testShippingConfig(), decimal.NewFromInt(5))
	quote := calc.Quote(decimal.RequireFromString("333.33"), decimal.Zero, decimal.Zero, "560001")

	// 5% of 333.33 = 16.6665 -> 16.67
	assert.True(t, quote.GSTAmount.Equal(decimal.RequireFromString("16.67")), "gst %s", quote.GSTAmount)
}
