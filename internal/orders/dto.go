package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// OrderDTO is the API projection of an order.
type OrderDTO struct {
	ID         uuid.UUID          `json:"id"`
	Number     string             `json:"number"`
	SessionID  string             `json:"session_id"`
	CustomerID *uuid.UUID         `json:"customer_id,omitempty"`
	Channel    enums.SalesChannel `json:"channel"`
	Status     enums.OrderStatus  `json:"status"`

	ShippingAddress types.Address       `json:"shipping_address"`
	AppliedCombo    *types.AppliedCombo `json:"applied_combo,omitempty"`
	CouponCode      *string             `json:"coupon_code,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	ComboSavings   decimal.Decimal `json:"combo_savings"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	ShippingLabel  string          `json:"shipping_label"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	Total          decimal.Decimal `json:"total"`

	LineItems []LineItemDTO `json:"line_items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItemDTO is one purchased line snapshot.
type LineItemDTO struct {
	ProductID            uuid.UUID       `json:"product_id"`
	Size                 string          `json:"size"`
	Quantity             int             `json:"quantity"`
	Title                string          `json:"title"`
	DisplayPrice         decimal.Decimal `json:"display_price"`
	OriginalDisplayPrice decimal.Decimal `json:"original_display_price"`
	LineTotal            decimal.Decimal `json:"line_total"`
}

// OrderListResult is a page of orders with the cursor for the next page.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO projects a stored order into its API shape.
func ToDTO(order *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              order.ID,
		Number:          order.Number,
		SessionID:       order.SessionID,
		CustomerID:      order.CustomerID,
		Channel:         order.Channel,
		Status:          order.Status,
		ShippingAddress: order.ShippingAddress,
		AppliedCombo:    order.AppliedCombo,
		CouponCode:      order.CouponCode,
		Subtotal:        order.Subtotal,
		ComboSavings:    order.ComboSavings,
		CouponDiscount:  order.CouponDiscount,
		ShippingFee:     order.ShippingFee,
		ShippingLabel:   order.ShippingLabel,
		GSTAmount:       order.GSTAmount,
		Total:           order.Total,
		LineItems:       make([]LineItemDTO, 0, len(order.LineItems)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for i := range order.LineItems {
		line := &order.LineItems[i]
		dto.LineItems = append(dto.LineItems, LineItemDTO{
			ProductID:            line.ProductID,
			Size:                 line.Size,
			Quantity:             line.Quantity,
			Title:                line.Title,
			DisplayPrice:         line.DisplayPrice,
			OriginalDisplayPrice: line.OriginalDisplayPrice,
			LineTotal:            line.LineTotal,
		})
	}
	return dto
}
