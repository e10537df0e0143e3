package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/internal/combos"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type stubCartRepo struct {
	records map[string]*models.CartRecord
	items   map[uuid.UUID][]models.CartItem
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		records: map[string]*models.CartRecord{},
		items:   map[uuid.UUID][]models.CartItem{},
	}
}

func (s *stubCartRepo) WithTx(_ *gorm.DB) CartRepository {
	return s
}

func (s *stubCartRepo) FindActiveBySession(_ context.Context, sessionID string) (*models.CartRecord, error) {
	record, ok := s.records[sessionID]
	if !ok || record.Status != enums.CartStatusActive {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	copied.Items = append([]models.CartItem(nil), s.items[record.ID]...)
	return &copied, nil
}

func (s *stubCartRepo) Create(_ context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	copied := *record
	copied.Items = nil
	s.records[record.SessionID] = &copied
	return record, nil
}

func (s *stubCartRepo) Save(_ context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	copied := *record
	copied.Items = nil
	s.records[record.SessionID] = &copied
	return record, nil
}

func (s *stubCartRepo) SaveItem(_ context.Context, item *models.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
		item.CreatedAt = time.Now()
	}
	lines := s.items[item.CartID]
	for i := range lines {
		if lines[i].ProductID == item.ProductID && lines[i].Size == item.Size {
			lines[i] = *item
			return nil
		}
	}
	s.items[item.CartID] = append(lines, *item)
	return nil
}

func (s *stubCartRepo) DeleteItem(_ context.Context, cartID, productID uuid.UUID, size string) error {
	lines := s.items[cartID]
	filtered := lines[:0]
	for _, line := range lines {
		if line.ProductID == productID && line.Size == size {
			continue
		}
		filtered = append(filtered, line)
	}
	s.items[cartID] = filtered
	return nil
}

func (s *stubCartRepo) DeleteAllItems(_ context.Context, cartID uuid.UUID) error {
	s.items[cartID] = nil
	return nil
}

func (s *stubCartRepo) ReplaceItems(_ context.Context, cartID uuid.UUID, items []models.CartItem) error {
	replaced := make([]models.CartItem, 0, len(items))
	for i := range items {
		item := items[i]
		item.CartID = cartID
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		replaced = append(replaced, item)
	}
	s.items[cartID] = replaced
	return nil
}

func (s *stubCartRepo) UpdateStatus(_ context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	for _, record := range s.records {
		if record.ID == cartID {
			record.Status = status
		}
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func newStubProductLoader(products ...*models.Product) *stubProductLoader {
	loader := &stubProductLoader{products: map[uuid.UUID]*models.Product{}}
	for _, product := range products {
		loader.products[product.ID] = product
	}
	return loader
}

func (s *stubProductLoader) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubProductLoader) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	rows := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

type stubComboEvaluator struct {
	applied *types.AppliedCombo
}

func (s *stubComboEvaluator) Evaluate(_ context.Context, _ enums.SalesChannel, lines []combos.LineInput, _ time.Time) (*types.AppliedCombo, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	return s.applied, nil
}

type stubLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (s *stubLocker) AcquireLock(_ context.Context, scope string, _ time.Duration) (bool, error) {
	if s.denied {
		return false, nil
	}
	s.acquired = append(s.acquired, scope)
	return true, nil
}

func (s *stubLocker) ReleaseLock(_ context.Context, scope string) error {
	s.released = append(s.released, scope)
	return nil
}

type cartFixture struct {
	repo     *stubCartRepo
	products *stubProductLoader
	combos   *stubComboEvaluator
	locker   *stubLocker
	svc      Service
}

func newCartFixture(t *testing.T, products ...*models.Product) *cartFixture {
	t.Helper()

	fixture := &cartFixture{
		repo:     newStubCartRepo(),
		products: newStubProductLoader(products...),
		combos:   &stubComboEvaluator{},
		locker:   &stubLocker{},
	}

	deriver := pricing.NewDeriver(decimal.NewFromInt(79))
	svc, err := NewService(fixture.repo, stubTxRunner{}, fixture.products, deriver, fixture.combos, fixture.locker, nil)
	require.NoError(t, err)
	fixture.svc = svc
	return fixture
}

func fixtureProduct(title string, basePrice string, stock types.SizeStock) *models.Product {
	return &models.Product{
		ID:          uuid.New(),
		Title:       title,
		Slug:        title,
		Category:    "kurta",
		Channel:     enums.SalesChannelRetail,
		BasePrice:   decimal.RequireFromString(basePrice),
		StockBySize: stock,
		InStock:     stock.AnyInStock(),
		IsActive:    true,
	}
}

func TestAddItemSnapshotsDerivedPrice(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Chikankari Kurta", "100", types.SizeStock{"M": 10})
	fixture := newCartFixture(t, product)

	dto, err := fixture.svc.AddItem(context.Background(), "sess-1", enums.SalesChannelRetail, AddItemInput{
		ProductID: product.ID,
		Size:      "M",
		Quantity:  2,
	})
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	item := dto.Items[0]
	assert.True(t, item.DisplayPrice.Equal(decimal.RequireFromString("179")), "display price %s", item.DisplayPrice)
	assert.True(t, item.OriginalDisplayPrice.Equal(decimal.RequireFromString("179")))
	assert.True(t, item.LineTotal.Equal(decimal.RequireFromString("358")))
	assert.False(t, item.HasDiscount)
	assert.Equal(t, 2, dto.Totals.TotalItems)
	assert.True(t, dto.Totals.Subtotal.Equal(decimal.RequireFromString("358")))
}

func TestAddItemMergesSameProductAndSize(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Anarkali Set", "100", types.SizeStock{"M": 10, "L": 10})
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "M", Quantity: 2})
	require.NoError(t, err)

	dto, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "M", Quantity: 3})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 5, dto.Items[0].Quantity)

	dto, err = fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "L", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, dto.Items, 2)
}

func TestAddItemClampsToAvailableStock(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Silk Saree", "500", types.SizeStock{"Free": 3})
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "Free", Quantity: 2})
	require.NoError(t, err)

	dto, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "Free", Quantity: 5})
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3, dto.Items[0].Quantity)
	require.Len(t, dto.Items[0].Warnings, 1)
	assert.Equal(t, enums.CartItemWarningTypeClampedToStock, dto.Items[0].Warnings[0].Type)
}

func TestAddItemRejectsOutOfStockSize(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Nehru Jacket", "800", types.SizeStock{"M": 0, "L": 4})
	fixture := newCartFixture(t, product)

	_, err := fixture.svc.AddItem(context.Background(), "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "M", Quantity: 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnavailable, typed.Code())
}

func TestAddItemRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Retired Kurta", "100", types.SizeStock{"M": 5})
	product.IsActive = false
	fixture := newCartFixture(t, product)

	_, err := fixture.svc.AddItem(context.Background(), "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "M", Quantity: 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnavailable, typed.Code())
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	fixture := newCartFixture(t)

	_, err := fixture.svc.AddItem(context.Background(), "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: uuid.New(), Size: "M", Quantity: 1})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Palazzo Pants", "300", types.SizeStock{"S": 5})
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "S", Quantity: 2})
	require.NoError(t, err)

	dto, err := fixture.svc.UpdateQuantity(ctx, "sess-1", product.ID, "S", 0)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Equal(t, 0, dto.Totals.TotalItems)
}

func TestUpdateQuantityClampsWithWarning(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Dupatta", "150", types.SizeStock{"Free": 4})
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "Free", Quantity: 1})
	require.NoError(t, err)

	dto, err := fixture.svc.UpdateQuantity(ctx, "sess-1", product.ID, "Free", 9)
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	assert.Equal(t, 4, dto.Items[0].Quantity)
	require.Len(t, dto.Items[0].Warnings, 1)
	assert.Equal(t, enums.CartItemWarningTypeClampedToStock, dto.Items[0].Warnings[0].Type)
}

func TestUpdateQuantityMissingLine(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Lehenga", "2000", types.SizeStock{"M": 2})
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "M", Quantity: 1})
	require.NoError(t, err)

	_, err = fixture.svc.UpdateQuantity(ctx, "sess-1", uuid.New(), "M", 2)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveItemClearsMatchingUnavailableFlag(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Kurta Pajama", "600", types.SizeStock{"L": 5})
	gone := uuid.New()
	fixture := newCartFixture(t, product)
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "L", Quantity: 1})
	require.NoError(t, err)

	record := fixture.repo.records["sess-1"]
	record.UnavailableItems = types.UnavailableItems{{
		ProductID: gone,
		Size:      "M",
		Reason:    enums.UnavailableReasonProductNotFound,
		Message:   "gone",
	}}

	dto, err := fixture.svc.RemoveItem(ctx, "sess-1", gone, "M")
	require.NoError(t, err)
	assert.Empty(t, dto.UnavailableItems)
	assert.Len(t, dto.Items, 1)
}

func TestClearEmptiesCart(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Sherwani", "5000", types.SizeStock{"XL": 2})
	fixture := newCartFixture(t, product)
	fixture.combos.applied = &types.AppliedCombo{ComboID: uuid.New(), Savings: decimal.NewFromInt(100)}
	ctx := context.Background()

	_, err := fixture.svc.AddItem(ctx, "sess-1", enums.SalesChannelRetail, AddItemInput{ProductID: product.ID, Size: "XL", Quantity: 2})
	require.NoError(t, err)

	dto, err := fixture.svc.Clear(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Empty(t, dto.UnavailableItems)
	assert.Nil(t, dto.AppliedCombo)
	assert.True(t, dto.Totals.Subtotal.IsZero())
}

func TestGetMissingCartReadsEmpty(t *testing.T) {
	t.Parallel()

	fixture := newCartFixture(t)

	dto, err := fixture.svc.Get(context.Background(), "sess-unknown", enums.SalesChannelRetail)
	require.NoError(t, err)
	assert.Empty(t, dto.Items)
	assert.Equal(t, enums.CartStatusActive, dto.Status)
	assert.Equal(t, "sess-unknown", dto.SessionID)
}

func TestTotalsIncludeDiscountAndComboSavings(t *testing.T) {
	t.Parallel()

	product := fixtureProduct("Festive Kurta", "100", types.SizeStock{"M": 10})
	product.DiscountType = enums.DiscountTypePercentage
	product.DiscountValue = decimal.NewFromInt(10)
	fixture := newCartFixture(t, product)
	fixture.combos.applied = &types.AppliedCombo{
		ComboID:   uuid.New(),
		Name:      "Festive Pair",
		Savings:   decimal.NewFromInt(50),
		ItemCount: 2,
	}

	dto, err := fixture.svc.AddItem(context.Background(), "sess-1", enums.SalesChannelRetail, AddItemInput{
		ProductID: product.ID,
		Size:      "M",
		Quantity:  2,
	})
	require.NoError(t, err)

	require.Len(t, dto.Items, 1)
	item := dto.Items[0]
	assert.True(t, item.DisplayPrice.Equal(decimal.RequireFromString("161.1")), "display price %s", item.DisplayPrice)
	assert.True(t, item.HasDiscount)

	// 17.90 per piece * 2 + 50 combo savings
	assert.True(t, dto.Totals.Savings.Equal(decimal.RequireFromString("85.8")), "savings %s", dto.Totals.Savings)
	require.NotNil(t, dto.AppliedCombo)
	assert.Equal(t, "Festive Pair", dto.AppliedCombo.Name)
}
