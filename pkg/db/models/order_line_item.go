package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// OrderLineItem snapshots a purchased line at order time.
type OrderLineItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_line_items_order"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Size      string    `gorm:"column:size;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`

	Title                string             `gorm:"column:title;not null"`
	BasePrice            decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	DiscountType         enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null;default:'none'"`
	DiscountValue        decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	DisplayPrice         decimal.Decimal    `gorm:"column:display_price;type:numeric(12,2);not null"`
	OriginalDisplayPrice decimal.Decimal    `gorm:"column:original_display_price;type:numeric(12,2);not null"`
	LineTotal            decimal.Decimal    `gorm:"column:line_total;type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
