package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// CartDTO is the storefront projection of a cart with derived totals.
type CartDTO struct {
	ID        uuid.UUID          `json:"id"`
	SessionID string             `json:"session_id"`
	Channel   enums.SalesChannel `json:"channel"`
	Status    enums.CartStatus   `json:"status"`

	Items            []CartItemDTO          `json:"items"`
	UnavailableItems types.UnavailableItems `json:"unavailable_items"`
	AppliedCombo     *types.AppliedCombo    `json:"applied_combo,omitempty"`

	Totals      Totals     `json:"totals"`
	SanitizedAt *time.Time `json:"sanitized_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartItemDTO is one priced cart line.
type CartItemDTO struct {
	ProductID            uuid.UUID              `json:"product_id"`
	Size                 string                 `json:"size"`
	Quantity             int                    `json:"quantity"`
	Title                string                 `json:"title"`
	DisplayPrice         decimal.Decimal        `json:"display_price"`
	OriginalDisplayPrice decimal.Decimal        `json:"original_display_price"`
	LineTotal            decimal.Decimal        `json:"line_total"`
	HasDiscount          bool                   `json:"has_discount"`
	FeaturedImage        *string                `json:"featured_image,omitempty"`
	Warnings             types.CartItemWarnings `json:"warnings,omitempty"`
}

func toDTO(record *models.CartRecord) *CartDTO {
	dto := &CartDTO{
		ID:               record.ID,
		SessionID:        record.SessionID,
		Channel:          record.Channel,
		Status:           record.Status,
		Items:            make([]CartItemDTO, 0, len(record.Items)),
		UnavailableItems: record.UnavailableItems,
		AppliedCombo:     record.AppliedCombo,
		Totals:           ComputeTotals(record),
		SanitizedAt:      record.SanitizedAt,
		UpdatedAt:        record.UpdatedAt,
	}
	for i := range record.Items {
		dto.Items = append(dto.Items, toItemDTO(&record.Items[i]))
	}
	return dto
}

func toItemDTO(item *models.CartItem) CartItemDTO {
	return CartItemDTO{
		ProductID:            item.ProductID,
		Size:                 item.Size,
		Quantity:             item.Quantity,
		Title:                item.Title,
		DisplayPrice:         item.DisplayPrice,
		OriginalDisplayPrice: item.OriginalDisplayPrice,
		LineTotal:            item.LineTotal,
		HasDiscount:          item.DisplayPrice.LessThan(item.OriginalDisplayPrice),
		FeaturedImage:        item.FeaturedImage,
		Warnings:             item.Warnings,
	}
}
