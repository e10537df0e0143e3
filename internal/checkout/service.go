package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/internal/cart"
	"github.com/adityakhanna/vastra-backend/internal/combos"
	"github.com/adityakhanna/vastra-backend/internal/coupons"
	"github.com/adityakhanna/vastra-backend/internal/orders"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
	"github.com/adityakhanna/vastra-backend/pkg/payments"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSanitizer interface {
	Sanitize(ctx context.Context, sessionID string) (*cart.CartDTO, error)
}

type stockStore interface {
	DecrementStockTx(tx *gorm.DB, productID uuid.UUID, size string, quantity int) (bool, error)
}

type comboEvaluator interface {
	Evaluate(ctx context.Context, channel enums.SalesChannel, lines []combos.LineInput, now time.Time) (*types.AppliedCombo, error)
}

type couponService interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupons.ValidationResult, error)
	GetApplied(ctx context.Context, sessionID string) (*types.AppliedCoupon, error)
	Remove(ctx context.Context, sessionID string) error
}

type couponConsumer interface {
	ConsumeTx(tx *gorm.DB, code string) (bool, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, currency string) (*payments.GatewayOrder, error)
	VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool
}

// Service converts a sanitized cart into a durable order and drives payment.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*orders.OrderDTO, error)
	CreateGatewayOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*GatewayOrderDTO, error)
	VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*orders.OrderDTO, error)
}

// CreateOrderInput is the checkout payload.
type CreateOrderInput struct {
	SessionID       string
	CustomerID      *uuid.UUID
	ShippingAddress types.Address
	Actor           *outbox.ActorRef
}

// VerifyPaymentInput carries the gateway callback fields.
type VerifyPaymentInput struct {
	SessionID        string
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// GatewayOrderDTO hands the client what it needs to open the payment widget.
type GatewayOrderDTO struct {
	OrderID        uuid.UUID       `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

type service struct {
	tx         txRunner
	carts      cartSanitizer
	cartRepo   cart.CartRepository
	orderRepo  orders.OrderRepository
	stock      stockStore
	combosvc   comboEvaluator
	couponSvc  couponService
	couponRepo couponConsumer
	events     eventEmitter
	gateway    paymentGateway
	calc       *Calculator
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the checkout flow. The gateway may be nil when payments are
// disabled in the environment; CreateGatewayOrder and VerifyPayment then fail.
func NewService(
	tx txRunner,
	carts cartSanitizer,
	cartRepo cart.CartRepository,
	orderRepo orders.OrderRepository,
	stock stockStore,
	combosvc comboEvaluator,
	couponSvc couponService,
	couponRepo couponConsumer,
	events eventEmitter,
	gateway paymentGateway,
	calc *Calculator,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil || cartRepo == nil {
		return nil, fmt.Errorf("cart dependencies required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock store required")
	}
	if combosvc == nil {
		return nil, fmt.Errorf("combo evaluator required")
	}
	if couponSvc == nil || couponRepo == nil {
		return nil, fmt.Errorf("coupon dependencies required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if calc == nil {
		return nil, fmt.Errorf("totals calculator required")
	}
	return &service{
		tx:         tx,
		carts:      carts,
		cartRepo:   cartRepo,
		orderRepo:  orderRepo,
		stock:      stock,
		combosvc:   combosvc,
		couponSvc:  couponSvc,
		couponRepo: couponRepo,
		events:     events,
		gateway:    gateway,
		calc:       calc,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// CreateOrder sanitizes the cart, takes stock, consumes the coupon and writes
// the order plus its outbox event in one transaction. Any unavailable line
// blocks the whole checkout.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*orders.OrderDTO, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	sanitized, err := s.carts.Sanitize(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if len(sanitized.UnavailableItems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "cart has unavailable items").
			WithDetails(sanitized.UnavailableItems)
	}
	if len(sanitized.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	applied, err := s.couponSvc.GetApplied(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	var created *models.Order
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record, err := s.cartRepo.WithTx(tx).FindActiveBySession(ctx, input.SessionID)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		lines := make([]combos.LineInput, 0, len(record.Items))
		for i := range record.Items {
			item := &record.Items[i]

			taken, err := s.stock.DecrementStockTx(tx, item.ProductID, item.Size, item.Quantity)
			if err != nil {
				return err
			}
			if !taken {
				return pkgerrors.New(pkgerrors.CodeUnavailable,
					fmt.Sprintf("%s sold out in size %s", item.Title, item.Size)).
					WithDetails(map[string]string{
						"product_id": item.ProductID.String(),
						"size":       item.Size,
						"reason":     string(enums.UnavailableReasonSizeOutOfStock),
					})
			}

			subtotal = subtotal.Add(item.LineTotal)
			lines = append(lines, combos.LineInput{
				ProductID:    item.ProductID,
				Size:         item.Size,
				Quantity:     item.Quantity,
				DisplayPrice: item.DisplayPrice,
			})
		}

		at := s.now()
		combo, err := s.combosvc.Evaluate(ctx, record.Channel, lines, at)
		if err != nil {
			return err
		}
		comboSavings := decimal.Zero
		if combo != nil {
			comboSavings = combo.Savings
		}

		couponDiscount := decimal.Zero
		var couponCode *string
		if applied != nil {
			result, err := s.couponSvc.Validate(ctx, applied.Code, subtotal.Sub(comboSavings))
			if err != nil {
				return err
			}
			consumed, err := s.couponRepo.ConsumeTx(tx, applied.Code)
			if err != nil {
				return err
			}
			if !consumed {
				return pkgerrors.New(pkgerrors.CodeConflict, "coupon is no longer available")
			}
			couponDiscount = result.Discount
			code := result.Coupon.Code
			couponCode = &code
		}

		quote := s.calc.Quote(subtotal, comboSavings, couponDiscount, input.ShippingAddress.PostalCode)

		order := &models.Order{
			Number:          s.orderNumber(at),
			SessionID:       record.SessionID,
			CustomerID:      input.CustomerID,
			Channel:         record.Channel,
			Status:          enums.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			AppliedCombo:    combo,
			CouponCode:      couponCode,
			Subtotal:        quote.Subtotal,
			ComboSavings:    quote.ComboSavings,
			CouponDiscount:  quote.CouponDiscount,
			ShippingFee:     quote.ShippingFee,
			ShippingLabel:   quote.ShippingLabel,
			GSTAmount:       quote.GSTAmount,
			Total:           quote.Total,
			LineItems:       lineItemsFrom(record.Items),
		}
		if _, err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data:          orders.PayloadFor(order, at),
			Version:       orders.EventPayloadVersion,
			OccurredAt:    at,
		}); err != nil {
			return err
		}

		if err := s.cartRepo.WithTx(tx).UpdateStatus(ctx, record.ID, enums.CartStatusConverted); err != nil {
			return err
		}

		created = order
		return nil
	}); err != nil {
		return nil, wrapCheckoutErr(err)
	}

	if applied != nil {
		if err := s.couponSvc.Remove(ctx, input.SessionID); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "failed to clear applied coupon after checkout")
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": created.ID.String(),
			"number":   created.Number,
			"total":    created.Total.String(),
		})
		s.logg.Info(logCtx, "order created")
	}
	return orders.ToDTO(created), nil
}

// CreateGatewayOrder registers the pending order with the payment gateway and
// pins the gateway handle to it.
func (s *service) CreateGatewayOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*GatewayOrderDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payments are not configured")
	}

	order, err := s.loadSessionOrder(ctx, sessionID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	if order.GatewayOrderID != nil {
		return &GatewayOrderDTO{
			OrderID:        order.ID,
			GatewayOrderID: *order.GatewayOrderID,
			Amount:         order.Total,
			Currency:       "INR",
		}, nil
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, order.Number, order.Total, "INR")
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save gateway order id")
	}

	return &GatewayOrderDTO{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         order.Total,
		Currency:       gatewayOrder.Currency,
	}, nil
}

// VerifyPayment checks the gateway signature and marks the order paid. The
// outbox emit is idempotent so replayed callbacks cannot double-publish.
func (s *service) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*orders.OrderDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payments are not configured")
	}
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order, payment and signature are required")
	}

	order, err := s.loadSessionOrder(ctx, input.SessionID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "gateway order mismatch")
	}
	if order.Status == enums.OrderStatusPaid {
		return orders.ToDTO(order), nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	if !s.gateway.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "payment signature verification failed")
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).MarkPaid(ctx, order.ID, input.GatewayPaymentID); err != nil {
			return err
		}
		at := s.now()
		order.Status = enums.OrderStatusPaid
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Data:          orders.PayloadFor(order, at),
			Version:       orders.EventPayloadVersion,
			OccurredAt:    at,
		})
	}); err != nil {
		return nil, wrapCheckoutErr(err)
	}

	order.GatewayPaymentID = &input.GatewayPaymentID
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"number":   order.Number,
		})
		s.logg.Info(logCtx, "order paid")
	}
	return orders.ToDTO(order), nil
}

func (s *service) loadSessionOrder(ctx context.Context, sessionID string, orderID uuid.UUID) (*models.Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SessionID != sessionID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// orderNumber builds a human-readable, collision-resistant order number. The
// unique index on orders.number catches the astronomically unlikely clash.
func (s *service) orderNumber(at time.Time) string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("VAS-%s-%s", at.Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix)))
}

func lineItemsFrom(items []models.CartItem) []models.OrderLineItem {
	lines := make([]models.OrderLineItem, 0, len(items))
	for i := range items {
		item := &items[i]
		lines = append(lines, models.OrderLineItem{
			ProductID:            item.ProductID,
			Size:                 item.Size,
			Quantity:             item.Quantity,
			Title:                item.Title,
			BasePrice:            item.BasePrice,
			DiscountType:         item.DiscountType,
			DiscountValue:        item.DiscountValue,
			DisplayPrice:         item.DisplayPrice,
			OriginalDisplayPrice: item.OriginalDisplayPrice,
			LineTotal:            item.LineTotal,
		})
	}
	return lines
}

func wrapCheckoutErr(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout failed")
}
