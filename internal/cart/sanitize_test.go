package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// seedCart writes a cart with the given lines straight into the stub store,
// bypassing the service so tests can seed stale snapshots.
func seedCart(fixture *cartFixture, sessionID string, items ...models.CartItem) *models.CartRecord {
	record := &models.CartRecord{
		ID:        uuid.New(),
		SessionID: sessionID,
		Channel:   enums.SalesChannelRetail,
		Status:    enums.CartStatusActive,
	}
	fixture.repo.records[sessionID] = record
	for i := range items {
		items[i].ID = uuid.New()
		items[i].CartID = record.ID
	}
	fixture.repo.items[record.ID] = items
	return record
}

func staleLine(product *models.Product, size string, quantity int, displayPrice string) models.CartItem {
	display := decimal.RequireFromString(displayPrice)
	qty := decimal.NewFromInt(int64(quantity))
	return models.CartItem{
		ProductID:            product.ID,
		Size:                 size,
		Quantity:             quantity,
		Title:                product.Title,
		BasePrice:            product.BasePrice,
		DiscountType:         product.DiscountType,
		DiscountValue:        product.DiscountValue,
		DisplayPrice:         display,
		OriginalDisplayPrice: display,
		LineTotal:            display.Mul(qty),
	}
}

func TestSanitizeFlagsDeletedProduct(t *testing.T) {
	t.Parallel()

	ghost := fixtureProduct("Deleted Kurta", "100", types.SizeStock{"M": 5})
	fixture := newCartFixture(t) // loader knows nothing about the product
	seedCart(fixture, "sess-1", staleLine(ghost, "M", 1, "179"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	// the flagged line stays visible but stops counting toward totals
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 0, dto.Totals.TotalItems)
	assert.True(t, dto.Totals.Subtotal.IsZero())
	require.Len(t, dto.UnavailableItems, 1)
	flag := dto.UnavailableItems[0]
	assert.Equal(t, ghost.ID, flag.ProductID)
	assert.Equal(t, enums.UnavailableReasonProductNotFound, flag.Reason)
}

func TestSanitizeFlagsInactiveProduct(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Retired Saree", "400", types.SizeStock{"Free": 5})
	product.IsActive = false
	fixture := newCartFixture(t, product)
	seedCart(fixture, "sess-1", staleLine(product, "Free", 1, "479"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	assert.Equal(t, 0, dto.Totals.TotalItems)
	require.Len(t, dto.UnavailableItems, 1)
	assert.Equal(t, enums.UnavailableReasonProductNotFound, dto.UnavailableItems[0].Reason)
}

func TestSanitizeFlagsOutOfStockSize(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Anarkali", "300", types.SizeStock{"M": 0, "L": 3})
	fixture := newCartFixture(t, product)
	seedCart(fixture, "sess-1",
		staleLine(product, "M", 2, "379"),
		staleLine(product, "L", 1, "379"),
	)

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Len(t, dto.Items, 2)
	require.Len(t, dto.UnavailableItems, 1)
	flag := dto.UnavailableItems[0]
	assert.Equal(t, "M", flag.Size)
	assert.Equal(t, enums.UnavailableReasonSizeOutOfStock, flag.Reason)

	// only the purchasable L line contributes to totals
	assert.Equal(t, 1, dto.Totals.TotalItems)
	assert.True(t, dto.Totals.Subtotal.Equal(decimal.RequireFromString("379")), "subtotal %s", dto.Totals.Subtotal)
}

func TestSanitizeClampsShortStock(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Cotton Kurta", "200", types.SizeStock{"S": 2})
	fixture := newCartFixture(t, product)
	seedCart(fixture, "sess-1", staleLine(product, "S", 5, "279"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Empty(t, dto.UnavailableItems)
	require.Len(t, dto.Items, 1)
	item := dto.Items[0]
	assert.Equal(t, 2, item.Quantity)
	require.Len(t, item.Warnings, 1)
	assert.Equal(t, enums.CartItemWarningTypeClampedToStock, item.Warnings[0].Type)
}

func TestSanitizeRefreshesChangedPrice(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Banarasi Saree", "120", types.SizeStock{"Free": 5})
	fixture := newCartFixture(t, product)
	// snapshot taken when the base price was 100
	seedCart(fixture, "sess-1", staleLine(product, "Free", 2, "179"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	item := dto.Items[0]
	assert.True(t, item.DisplayPrice.Equal(decimal.RequireFromString("199")), "display price %s", item.DisplayPrice)
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("398")))
	require.Len(t, item.Warnings, 1)
	assert.Equal(t, enums.CartItemWarningTypePriceChanged, item.Warnings[0].Type)
}

func TestSanitizeReplacesPreviousUnavailableSet(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Restocked Kurta", "100", types.SizeStock{"M": 5})
	fixture := newCartFixture(t, product)
	record := seedCart(fixture, "sess-1", staleLine(product, "M", 1, "179"))
	record.UnavailableItems = types.UnavailableItems{{
		ProductID: uuid.New(),
		Size:      "L",
		Reason:    enums.UnavailableReasonSizeOutOfStock,
		Message:   "stale flag",
	}}

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Empty(t, dto.UnavailableItems)
	assert.Len(t, dto.Items, 1)
}

func TestSanitizeSetsTimestampAndReleasesLock(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Kurta", "100", types.SizeStock{"M": 5})
	fixture := newCartFixture(t, product)
	seedCart(fixture, "sess-1", staleLine(product, "M", 1, "179"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	require.NotNil(t, dto.SanitizedAt)
	assert.Equal(t, []string{"sanitize:sess-1"}, fixture.locker.acquired)
	assert.Equal(t, []string{"sanitize:sess-1"}, fixture.locker.released)
}

func TestSanitizeSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Kurta", "100", types.SizeStock{"M": 0})
	fixture := newCartFixture(t, product)
	fixture.locker.denied = true
	seedCart(fixture, "sess-1", staleLine(product, "M", 1, "179"))

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	// lock held elsewhere: the cart comes back untouched
	assert.Len(t, dto.Items, 1)
	assert.Empty(t, dto.UnavailableItems)
	assert.Nil(t, dto.SanitizedAt)
	assert.Empty(t, fixture.locker.released)
}

func TestSanitizeMissingCart(t *testing.T) {
	t.Parallel()

	fixture := newCartFixture(t)

	dto, err := fixture.svc.Sanitize(context.Background(), "sess-ghost")
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Empty(t, dto.UnavailableItems)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Lehenga", "500", types.SizeStock{"M": 0})
	fixture := newCartFixture(t, product)
	seedCart(fixture, "sess-1", staleLine(product, "M", 2, "579"))

	first, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)
	second, err := fixture.svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	// the second run must report the same partition as the first
	for _, dto := range []*CartDTO{first, second} {
		require.Len(t, dto.Items, 1)
		require.Len(t, dto.UnavailableItems, 1)
		flag := dto.UnavailableItems[0]
		assert.Equal(t, product.ID, flag.ProductID)
		assert.Equal(t, "M", flag.Size)
		assert.Equal(t, enums.UnavailableReasonSizeOutOfStock, flag.Reason)
		assert.Equal(t, 0, dto.Totals.TotalItems)
	}
}

// hookedTxRunner fires a callback just before the transactional closure runs,
// standing in for a write that commits between lock acquisition and the
// sanitizer's read.
type hookedTxRunner struct {
	before func()
}

func (h hookedTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	if h.before != nil {
		h.before()
	}
	return fn(nil)
}

func TestSanitizeKeepsLineAddedBeforeRewrite(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Chikankari Kurta", "200", types.SizeStock{"M": 5, "L": 5})
	fixture := newCartFixture(t, product)
	record := seedCart(fixture, "sess-1", staleLine(product, "M", 1, "279"))

	deriver := pricing.NewDeriver(decimal.NewFromInt(79))
	runner := hookedTxRunner{before: func() {
		line := staleLine(product, "L", 1, "279")
		line.ID = uuid.New()
		line.CartID = record.ID
		fixture.repo.items[record.ID] = append(fixture.repo.items[record.ID], line)
	}}
	svc, err := NewService(fixture.repo, runner, fixture.products, deriver, fixture.combos, fixture.locker, nil)
	require.NoError(t, err)

	dto, err := svc.Sanitize(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Len(t, dto.Items, 2)
	sizes := []string{dto.Items[0].Size, dto.Items[1].Size}
	assert.ElementsMatch(t, []string{"M", "L"}, sizes)
	assert.Empty(t, dto.UnavailableItems)
}
