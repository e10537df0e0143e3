package orders

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
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
	"github.com/adityakhanna/vastra-backend/pkg/pagination"
)

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubOrderRepo(orders ...*models.Order) *stubOrderRepo {
	repo := &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (s *stubOrderRepo) WithTx(_ *gorm.DB) OrderRepository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrderRepo) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.Number == number {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListBySession(_ context.Context, sessionID string, _ int, _ *pagination.Cursor) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.SessionID == sessionID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubOrderRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, _ int, _ *pagination.Cursor) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.CustomerID != nil && *order.CustomerID == customerID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubOrderRepo) ListAll(_ context.Context, filter ListOrdersFilter) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		rows = append(rows, *order)
	}
	return rows, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) error {
	if order, ok := s.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (s *stubOrderRepo) SetGatewayOrderID(_ context.Context, id uuid.UUID, gatewayOrderID string) error {
	if order, ok := s.orders[id]; ok {
		order.GatewayOrderID = &gatewayOrderID
	}
	return nil
}

func (s *stubOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, gatewayPaymentID string) error {
	if order, ok := s.orders[id]; ok {
		order.Status = enums.OrderStatusPaid
		order.GatewayPaymentID = &gatewayPaymentID
	}
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func testOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:        uuid.New(),
		Number:    "VAS-20260830-0001",
		SessionID: "sess-1",
		Channel:   enums.SalesChannelRetail,
		Status:    status,
		Subtotal:  decimal.NewFromInt(1000),
		Total:     decimal.NewFromInt(1050),
		LineItems: []models.OrderLineItem{{
			ProductID: uuid.New(),
			Size:      "M",
			Quantity:  2,
			Title:     "Kurta",
			LineTotal: decimal.NewFromInt(1000),
		}},
	}
}

func newOrderService(t *testing.T, repo OrderRepository, emitter eventEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, stubTx{}, emitter, nil)
	require.NoError(t, err)
	return svc
}

func TestGetForSessionHidesForeignOrders(t *testing.T) {
	t.Parallel()

	order := testOrder(enums.OrderStatusPaid)
	svc := newOrderService(t, newStubOrderRepo(order), &recordingEmitter{})

	dto, err := svc.GetForSession(context.Background(), "sess-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Number, dto.Number)

	_, err = svc.GetForSession(context.Background(), "sess-other", order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	t.Parallel()

	order := testOrder(enums.OrderStatusPaid)
	repo := newStubOrderRepo(order)
	svc := newOrderService(t, repo, &recordingEmitter{})

	dto, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusShipped, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, dto.Status)

	dto, err = svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, dto.Status)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	t.Parallel()

	order := testOrder(enums.OrderStatusDelivered)
	svc := newOrderService(t, newStubOrderRepo(order), &recordingEmitter{})

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusPending, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancellationEmitsEvent(t *testing.T) {
	t.Parallel()

	order := testOrder(enums.OrderStatusPending)
	emitter := &recordingEmitter{}
	svc := newOrderService(t, newStubOrderRepo(order), emitter)

	dto, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)

	require.Len(t, emitter.events, 1)
	event := emitter.events[0]
	assert.Equal(t, enums.OutboxEventOrderCancelled, event.EventType)
	assert.Equal(t, order.ID, event.AggregateID)

	payload, ok := event.Data.(EventPayload)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusCancelled, payload.Status)
	assert.Equal(t, 2, payload.ItemCount)
}

func TestShippedTransitionEmitsNothing(t *testing.T) {
	t.Parallel()

	order := testOrder(enums.OrderStatusPaid)
	emitter := &recordingEmitter{}
	svc := newOrderService(t, newStubOrderRepo(order), emitter)

	_, err := svc.UpdateStatus(context.Background(), order.ID, enums.OrderStatusShipped, nil)
	require.NoError(t, err)
	assert.Empty(t, emitter.events)
}

func TestAdminListValidatesStatus(t *testing.T) {
	t.Parallel()

	svc := newOrderService(t, newStubOrderRepo(), &recordingEmitter{})

	_, err := svc.AdminList(context.Background(), AdminListInput{Status: "bogus"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
