package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/internal/cart"
	"github.com/adityakhanna/vastra-backend/internal/combos"
	"github.com/adityakhanna/vastra-backend/internal/coupons"
	"github.com/adityakhanna/vastra-backend/internal/orders"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
	"github.com/adityakhanna/vastra-backend/pkg/pagination"
	"github.com/adityakhanna/vastra-backend/pkg/payments"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubSanitizer struct {
	dto *cart.CartDTO
	err error
}

func (s *stubSanitizer) Sanitize(_ context.Context, _ string) (*cart.CartDTO, error) {
	return s.dto, s.err
}

type stubCartStore struct {
	record *models.CartRecord
	status enums.CartStatus
}

func (s *stubCartStore) WithTx(_ *gorm.DB) cart.CartRepository { return s }

func (s *stubCartStore) FindActiveBySession(_ context.Context, sessionID string) (*models.CartRecord, error) {
	if s.record == nil || s.record.SessionID != sessionID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.record
	return &copied, nil
}

func (s *stubCartStore) Create(_ context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	return record, nil
}

func (s *stubCartStore) Save(_ context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	return record, nil
}

func (s *stubCartStore) SaveItem(_ context.Context, _ *models.CartItem) error { return nil }

func (s *stubCartStore) DeleteItem(_ context.Context, _, _ uuid.UUID, _ string) error { return nil }

func (s *stubCartStore) DeleteAllItems(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubCartStore) ReplaceItems(_ context.Context, _ uuid.UUID, _ []models.CartItem) error {
	return nil
}

func (s *stubCartStore) UpdateStatus(_ context.Context, _ uuid.UUID, status enums.CartStatus) error {
	s.status = status
	return nil
}

type stubOrderStore struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderStore) WithTx(_ *gorm.DB) orders.OrderRepository { return s }

func (s *stubOrderStore) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderStore) FindByNumber(_ context.Context, _ string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderStore) ListBySession(_ context.Context, _ string, _ int, _ *pagination.Cursor) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) ListByCustomer(_ context.Context, _ uuid.UUID, _ int, _ *pagination.Cursor) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) ListAll(_ context.Context, _ orders.ListOrdersFilter) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderStore) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) error {
	if order, ok := s.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (s *stubOrderStore) SetGatewayOrderID(_ context.Context, id uuid.UUID, gatewayOrderID string) error {
	if order, ok := s.orders[id]; ok {
		order.GatewayOrderID = &gatewayOrderID
	}
	return nil
}

func (s *stubOrderStore) MarkPaid(_ context.Context, id uuid.UUID, gatewayPaymentID string) error {
	if order, ok := s.orders[id]; ok {
		order.Status = enums.OrderStatusPaid
		order.GatewayPaymentID = &gatewayPaymentID
	}
	return nil
}

type stubStock struct {
	stock map[string]int // productID|size -> available
	taken map[string]int
}

func stockKey(productID uuid.UUID, size string) string { return productID.String() + "|" + size }

func newStubStock() *stubStock {
	return &stubStock{stock: map[string]int{}, taken: map[string]int{}}
}

func (s *stubStock) DecrementStockTx(_ *gorm.DB, productID uuid.UUID, size string, quantity int) (bool, error) {
	key := stockKey(productID, size)
	if s.stock[key] < quantity {
		return false, nil
	}
	s.stock[key] -= quantity
	s.taken[key] += quantity
	return true, nil
}

type stubCombos struct {
	applied *types.AppliedCombo
}

func (s *stubCombos) Evaluate(_ context.Context, _ enums.SalesChannel, lines []combos.LineInput, _ time.Time) (*types.AppliedCombo, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	return s.applied, nil
}

type stubCoupons struct {
	applied     *types.AppliedCoupon
	discount    decimal.Decimal
	validateErr error
	consumable  bool
	removed     bool
}

func (s *stubCoupons) Validate(_ context.Context, code string, _ decimal.Decimal) (*coupons.ValidationResult, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return &coupons.ValidationResult{
		Coupon:   &models.Coupon{Code: code},
		Discount: s.discount,
	}, nil
}

func (s *stubCoupons) GetApplied(_ context.Context, _ string) (*types.AppliedCoupon, error) {
	return s.applied, nil
}

func (s *stubCoupons) Remove(_ context.Context, _ string) error {
	s.removed = true
	return nil
}

func (s *stubCoupons) ConsumeTx(_ *gorm.DB, _ string) (bool, error) {
	return s.consumable, nil
}

type stubEmitter struct {
	emitted    []outbox.DomainEvent
	idempotent []outbox.DomainEvent
}

func (s *stubEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.emitted = append(s.emitted, event)
	return nil
}

func (s *stubEmitter) EmitIfNotExists(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.idempotent = append(s.idempotent, event)
	return nil
}

type stubGateway struct {
	created  int
	validSig string
}

func (s *stubGateway) CreateOrder(_ context.Context, receipt string, amount decimal.Decimal, currency string) (*payments.GatewayOrder, error) {
	s.created++
	return &payments.GatewayOrder{
		ID:       "gw_order_1",
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (s *stubGateway) VerifyPaymentSignature(_, _, signature string) bool {
	return signature == s.validSig
}

type checkoutFixture struct {
	sanitizer *stubSanitizer
	cartStore *stubCartStore
	orders    *stubOrderStore
	stock     *stubStock
	combos    *stubCombos
	coupons   *stubCoupons
	emitter   *stubEmitter
	gateway   *stubGateway
	svc       Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	fixture := &checkoutFixture{
		sanitizer: &stubSanitizer{dto: &cart.CartDTO{Items: []cart.CartItemDTO{}}},
		cartStore: &stubCartStore{},
		orders:    newStubOrderStore(),
		stock:     newStubStock(),
		combos:    &stubCombos{},
		coupons:   &stubCoupons{consumable: true},
		emitter:   &stubEmitter{},
		gateway:   &stubGateway{validSig: "good-signature"},
	}

	calc := NewCalculator(testShippingConfig(), decimal.NewFromInt(5))
	svc, err := NewService(
		stubTx{},
		fixture.sanitizer,
		fixture.cartStore,
		fixture.orders,
		fixture.stock,
		fixture.combos,
		fixture.coupons,
		fixture.coupons,
		fixture.emitter,
		fixture.gateway,
		calc,
		nil,
	)
	require.NoError(t, err)
	fixture.svc = svc
	return fixture
}

func testAddress() types.Address {
	return types.Address{
		Name:       "Aditi Sharma",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Country:    "IN",
		Phone:      "9876543210",
	}
}

// seedCheckoutCart loads one cart line into the stub store and mirrors it in
// the sanitizer result and stock map.
func (f *checkoutFixture) seedCheckoutCart(sessionID string, quantity int, displayPrice string, stock int) *models.CartItem {
	display := decimal.RequireFromString(displayPrice)
	item := models.CartItem{
		ID:                   uuid.New(),
		CartID:               uuid.New(),
		ProductID:            uuid.New(),
		Size:                 "M",
		Quantity:             quantity,
		Title:                "Kurta",
		BasePrice:            display.Sub(decimal.NewFromInt(79)),
		DisplayPrice:         display,
		OriginalDisplayPrice: display,
		LineTotal:            display.Mul(decimal.NewFromInt(int64(quantity))),
	}
	f.cartStore.record = &models.CartRecord{
		ID:        item.CartID,
		SessionID: sessionID,
		Channel:   enums.SalesChannelRetail,
		Status:    enums.CartStatusActive,
		Items:     []models.CartItem{item},
	}
	f.sanitizer.dto = &cart.CartDTO{
		SessionID: sessionID,
		Items: []cart.CartItemDTO{{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		}},
	}
	f.stock.stock[stockKey(item.ProductID, item.Size)] = stock
	return &item
}

func TestCreateOrderHappyPath(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	item := fixture.seedCheckoutCart("sess-1", 2, "250", 5)

	dto, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, dto.Status)
	assert.True(t, dto.Subtotal.Equal(decimal.NewFromInt(500)))
	assert.True(t, dto.ShippingFee.Equal(decimal.NewFromInt(49)))
	assert.True(t, dto.GSTAmount.Equal(decimal.NewFromInt(25)))
	assert.True(t, dto.Total.Equal(decimal.NewFromInt(574)), "total %s", dto.Total)
	require.Len(t, dto.LineItems, 1)
	assert.Equal(t, 2, dto.LineItems[0].Quantity)

	assert.Equal(t, 2, fixture.stock.taken[stockKey(item.ProductID, item.Size)])
	assert.Equal(t, enums.CartStatusConverted, fixture.cartStore.status)

	require.Len(t, fixture.emitter.emitted, 1)
	assert.Equal(t, enums.OutboxEventOrderCreated, fixture.emitter.emitted[0].EventType)
}

func TestCreateOrderBlockedByUnavailableItems(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)
	fixture.sanitizer.dto.UnavailableItems = types.UnavailableItems{{
		ProductID: uuid.New(),
		Size:      "M",
		Reason:    enums.UnavailableReasonProductNotFound,
	}}

	_, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnavailable, typed.Code())
	assert.Empty(t, fixture.emitter.emitted)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)

	_, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateOrderStockRace(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	// sanitizer saw 2 in stock but a concurrent checkout took them
	fixture.seedCheckoutCart("sess-1", 2, "250", 1)

	_, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnavailable, typed.Code())
	assert.Empty(t, fixture.emitter.emitted)
}

func TestCreateOrderConsumesCoupon(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 2, "250", 5)
	fixture.coupons.applied = &types.AppliedCoupon{Code: "WELCOME50", Discount: decimal.NewFromInt(50)}
	fixture.coupons.discount = decimal.NewFromInt(50)

	dto, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	require.NotNil(t, dto.CouponCode)
	assert.Equal(t, "WELCOME50", *dto.CouponCode)
	assert.True(t, dto.CouponDiscount.Equal(decimal.NewFromInt(50)))
	// goods 450 + shipping 49 + gst 22.50
	assert.True(t, dto.Total.Equal(decimal.RequireFromString("521.5")), "total %s", dto.Total)
	assert.True(t, fixture.coupons.removed)
}

func TestCreateOrderCouponExhaustedMidFlight(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)
	fixture.coupons.applied = &types.AppliedCoupon{Code: "WELCOME50", Discount: decimal.NewFromInt(50)}
	fixture.coupons.consumable = false

	_, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.False(t, fixture.coupons.removed)
}

func TestCreateOrderAppliesComboSavings(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 2, "250", 5)
	fixture.combos.applied = &types.AppliedCombo{
		ComboID: uuid.New(),
		Name:    "Pair Deal",
		Savings: decimal.NewFromInt(100),
	}

	dto, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	assert.True(t, dto.ComboSavings.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, dto.AppliedCombo)
	// goods 400 + shipping 49 + gst 20
	assert.True(t, dto.Total.Equal(decimal.NewFromInt(469)), "total %s", dto.Total)
}

func TestCreateGatewayOrderPinsHandle(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)

	created, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	gw, err := fixture.svc.CreateGatewayOrder(context.Background(), "sess-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "gw_order_1", gw.GatewayOrderID)
	assert.Equal(t, 1, fixture.gateway.created)

	// second call reuses the pinned gateway order
	gw, err = fixture.svc.CreateGatewayOrder(context.Background(), "sess-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "gw_order_1", gw.GatewayOrderID)
	assert.Equal(t, 1, fixture.gateway.created)
}

func TestVerifyPaymentMarksOrderPaid(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)

	created, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	_, err = fixture.svc.CreateGatewayOrder(context.Background(), "sess-1", created.ID)
	require.NoError(t, err)

	dto, err := fixture.svc.VerifyPayment(context.Background(), VerifyPaymentInput{
		SessionID:        "sess-1",
		OrderID:          created.ID,
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "good-signature",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, dto.Status)

	require.Len(t, fixture.emitter.idempotent, 1)
	assert.Equal(t, enums.OutboxEventOrderPaid, fixture.emitter.idempotent[0].EventType)
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)

	created, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	_, err = fixture.svc.CreateGatewayOrder(context.Background(), "sess-1", created.ID)
	require.NoError(t, err)

	_, err = fixture.svc.VerifyPayment(context.Background(), VerifyPaymentInput{
		SessionID:        "sess-1",
		OrderID:          created.ID,
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "forged",
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePayment, typed.Code())
	assert.Empty(t, fixture.emitter.idempotent)
}

func TestVerifyPaymentIdempotentWhenAlreadyPaid(t *testing.T) {
	t.Parallel()

	fixture := newCheckoutFixture(t)
	fixture.seedCheckoutCart("sess-1", 1, "250", 5)

	created, err := fixture.svc.CreateOrder(context.Background(), CreateOrderInput{
		SessionID:       "sess-1",
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	_, err = fixture.svc.CreateGatewayOrder(context.Background(), "sess-1", created.ID)
	require.NoError(t, err)

	input := VerifyPaymentInput{
		SessionID:        "sess-1",
		OrderID:          created.ID,
		GatewayOrderID:   "gw_order_1",
		GatewayPaymentID: "pay_1",
		Signature:        "good-signature",
	}
	_, err = fixture.svc.VerifyPayment(context.Background(), input)
	require.NoError(t, err)

	dto, err := fixture.svc.VerifyPayment(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, dto.Status)
	assert.Len(t, fixture.emitter.idempotent, 1)
}
