package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// CartItem is a cart line keyed by (cart, product, size); the unique index
// enforces the merge invariant at the storage layer.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_key,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_key,priority:2"`
	Size      string    `gorm:"column:size;not null;uniqueIndex:ux_cart_items_key,priority:3"`
	Quantity  int       `gorm:"column:quantity;not null"`

	// Price snapshot from the deriver at the time the line was last touched.
	Title                string             `gorm:"column:title;not null"`
	BasePrice            decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	DiscountType         enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null;default:'none'"`
	DiscountValue        decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	DisplayPrice         decimal.Decimal    `gorm:"column:display_price;type:numeric(12,2);not null"`
	OriginalDisplayPrice decimal.Decimal    `gorm:"column:original_display_price;type:numeric(12,2);not null"`
	LineTotal            decimal.Decimal    `gorm:"column:line_total;type:numeric(12,2);not null"`

	FeaturedImage *string                `gorm:"column:featured_image"`
	Warnings      types.CartItemWarnings `gorm:"column:warnings;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
