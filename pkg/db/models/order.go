package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Order is the durable result of a successful checkout. Totals are the
// authoritative server-side calculation, never the client preview.
type Order struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number     string             `gorm:"column:number;not null;uniqueIndex:ux_orders_number"`
	SessionID  string             `gorm:"column:session_id;not null;index:ix_orders_session"`
	CustomerID *uuid.UUID         `gorm:"column:customer_id;type:uuid;index:ix_orders_customer"`
	Channel    enums.SalesChannel `gorm:"column:channel;type:sales_channel;not null;default:'retail'"`
	Status     enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending'"`

	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	AppliedCombo    *types.AppliedCombo `gorm:"column:applied_combo;type:jsonb;serializer:json"`
	CouponCode      *string             `gorm:"column:coupon_code"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ComboSavings   decimal.Decimal `gorm:"column:combo_savings;type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	ShippingFee    decimal.Decimal `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	ShippingLabel  string          `gorm:"column:shipping_label;not null;default:''"`
	GSTAmount      decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	GatewayOrderID   *string `gorm:"column:gateway_order_id"`
	GatewayPaymentID *string `gorm:"column:gateway_payment_id"`

	LineItems []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
