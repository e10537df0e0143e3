package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// EventPayloadVersion is the envelope version for order event payloads. Bump
// it when EventPayload changes shape; the analytics pipeline keys off it.
const EventPayloadVersion = 1

// EventPayload is the order projection carried by every order outbox event.
type EventPayload struct {
	OrderID        uuid.UUID          `json:"order_id"`
	Number         string             `json:"number"`
	SessionID      string             `json:"session_id"`
	CustomerID     *uuid.UUID         `json:"customer_id,omitempty"`
	Channel        enums.SalesChannel `json:"channel"`
	Status         enums.OrderStatus  `json:"status"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	ComboSavings   decimal.Decimal    `json:"combo_savings"`
	CouponCode     *string            `json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal    `json:"coupon_discount"`
	ShippingFee    decimal.Decimal    `json:"shipping_fee"`
	GSTAmount      decimal.Decimal    `json:"gst_amount"`
	Total          decimal.Decimal    `json:"total"`
	ItemCount      int                `json:"item_count"`
	Items          []EventLineItem    `json:"items"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// EventLineItem is the per-line projection inside an order event. Analytics
// reads it out of the stored payload JSON for product-level reporting.
type EventLineItem struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Title        string          `json:"title"`
	Size         string          `json:"size"`
	Quantity     int             `json:"quantity"`
	DisplayPrice decimal.Decimal `json:"display_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// PayloadFor projects an order into the event payload shape.
func PayloadFor(order *models.Order, at time.Time) EventPayload {
	itemCount := 0
	items := make([]EventLineItem, 0, len(order.LineItems))
	for i := range order.LineItems {
		line := &order.LineItems[i]
		itemCount += line.Quantity
		items = append(items, EventLineItem{
			ProductID:    line.ProductID,
			Title:        line.Title,
			Size:         line.Size,
			Quantity:     line.Quantity,
			DisplayPrice: line.DisplayPrice,
			LineTotal:    line.LineTotal,
		})
	}
	return EventPayload{
		OrderID:        order.ID,
		Number:         order.Number,
		SessionID:      order.SessionID,
		CustomerID:     order.CustomerID,
		Channel:        order.Channel,
		Status:         order.Status,
		Subtotal:       order.Subtotal,
		ComboSavings:   order.ComboSavings,
		CouponCode:     order.CouponCode,
		CouponDiscount: order.CouponDiscount,
		ShippingFee:    order.ShippingFee,
		GSTAmount:      order.GSTAmount,
		Total:          order.Total,
		ItemCount:      itemCount,
		Items:          items,
		OccurredAt:     at,
	}
}
