package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// ProductDTO is the storefront projection of a product. Prices are already
// derived; clients never see the raw base price math.
type ProductDTO struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Description *string            `json:"description,omitempty"`
	Category    string             `json:"category"`
	Channel     enums.SalesChannel `json:"channel"`

	DisplayPrice         decimal.Decimal `json:"display_price"`
	OriginalDisplayPrice decimal.Decimal `json:"original_display_price"`
	Discount             decimal.Decimal `json:"discount"`
	HasDiscount          bool            `json:"has_discount"`

	StockBySize types.SizeStock `json:"stock_by_size"`
	InStock     bool            `json:"in_stock"`
	Images      []string        `json:"images"`
	IsActive    bool            `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminProductDTO extends the public projection with the pricing inputs the
// admin console edits.
type AdminProductDTO struct {
	ProductDTO
	BasePrice     decimal.Decimal    `json:"base_price"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
}

func toDTO(product *models.Product, deriver *pricing.Deriver) *ProductDTO {
	breakdown := deriver.Derive(product.EffectiveBasePrice(), product.DiscountType, product.DiscountValue)
	return &ProductDTO{
		ID:                   product.ID,
		Title:                product.Title,
		Slug:                 product.Slug,
		Description:          product.Description,
		Category:             product.Category,
		Channel:              product.Channel,
		DisplayPrice:         breakdown.DisplayPrice,
		OriginalDisplayPrice: breakdown.OriginalDisplayPrice,
		Discount:             breakdown.Discount,
		HasDiscount:          breakdown.HasDiscount,
		StockBySize:          product.StockBySize,
		InStock:              product.StockBySize.AnyInStock(),
		Images:               product.Images,
		IsActive:             product.IsActive,
		CreatedAt:            product.CreatedAt,
		UpdatedAt:            product.UpdatedAt,
	}
}

func toAdminDTO(product *models.Product, deriver *pricing.Deriver) *AdminProductDTO {
	return &AdminProductDTO{
		ProductDTO:    *toDTO(product, deriver),
		BasePrice:     product.EffectiveBasePrice(),
		DiscountType:  product.DiscountType,
		DiscountValue: product.DiscountValue,
	}
}

// ProductListResult is one cursor page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}
