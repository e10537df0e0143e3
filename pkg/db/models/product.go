package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Product is the canonical catalog listing.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string             `gorm:"column:title;not null"`
	Slug        string             `gorm:"column:slug;not null;uniqueIndex"`
	Description *string            `gorm:"column:description"`
	Category    string             `gorm:"column:category;not null"`
	Channel     enums.SalesChannel `gorm:"column:channel;type:sales_channel;not null;default:'retail'"`

	// BasePrice is authoritative. LegacyPrice mirrors the old price column and
	// is only read when BasePrice is absent on imported rows.
	BasePrice     decimal.Decimal    `gorm:"column:base_price;type:numeric(12,2);not null"`
	LegacyPrice   *decimal.Decimal   `gorm:"column:price;type:numeric(12,2)"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null;default:'none'"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`

	// StockBySize is the source of truth for availability; InStock is a cached
	// derivation and must never be trusted on its own.
	StockBySize types.SizeStock `gorm:"column:stock_by_size;type:jsonb;serializer:json;not null"`
	InStock     bool            `gorm:"column:in_stock;not null;default:false"`

	Images   pq.StringArray `gorm:"column:images;type:text[]"`
	IsActive bool           `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveBasePrice prefers the authoritative base price, falling back to the
// legacy price column for rows imported before the split.
func (p *Product) EffectiveBasePrice() decimal.Decimal {
	if !p.BasePrice.IsZero() {
		return p.BasePrice
	}
	if p.LegacyPrice != nil {
		return *p.LegacyPrice
	}
	return p.BasePrice
}

// PurchasableAt reports whether the product can be bought at the given size.
func (p *Product) PurchasableAt(size string) bool {
	return p.IsActive && p.StockBySize.Available(size) > 0
}
