package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adityakhanna/vastra-backend/internal/orders"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
)

// OrderEventRow is the BigQuery projection of one order lifecycle event. The
// table is append-only; every status change lands as its own row.
type OrderEventRow struct {
	EventID       string    `bigquery:"event_id"`
	EventType     string    `bigquery:"event_type"`
	EventVersion  int       `bigquery:"event_version"`
	OrderID       string    `bigquery:"order_id"`
	OrderNumber   string    `bigquery:"order_number"`
	SessionID     string    `bigquery:"session_id"`
	CustomerID    string    `bigquery:"customer_id"`
	Channel       string    `bigquery:"channel"`
	Status        string    `bigquery:"status"`
	Subtotal      float64   `bigquery:"subtotal"`
	ComboSavings  float64   `bigquery:"combo_savings"`
	CouponCode    string    `bigquery:"coupon_code"`
	CouponAmount  float64   `bigquery:"coupon_amount"`
	ShippingFee   float64   `bigquery:"shipping_fee"`
	GSTAmount     float64   `bigquery:"gst_amount"`
	Total         float64   `bigquery:"total"`
	ItemCount     int       `bigquery:"item_count"`
	OccurredAt    time.Time `bigquery:"occurred_at"`
	IngestedAt    time.Time `bigquery:"ingested_at"`
	PayloadJSON   string    `bigquery:"payload_json"`
	ActorRole     string    `bigquery:"actor_role"`
	ActorSession  string    `bigquery:"actor_session"`
	ActorCustomer string    `bigquery:"actor_customer"`
}

// decodeError marks payloads that can never be ingested; consumers drop the
// message instead of retrying.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// RowFromEnvelope decodes a published outbox envelope into a BigQuery row.
func RowFromEnvelope(eventType string, raw []byte, ingestedAt time.Time) (*OrderEventRow, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &decodeError{err: fmt.Errorf("decoding event envelope: %w", err)}
	}

	var payload orders.EventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, &decodeError{err: fmt.Errorf("decoding order payload: %w", err)}
	}

	row := &OrderEventRow{
		EventID:      envelope.EventID,
		EventType:    eventType,
		EventVersion: envelope.Version,
		OrderID:      payload.OrderID.String(),
		OrderNumber:  payload.Number,
		SessionID:    payload.SessionID,
		Channel:      string(payload.Channel),
		Status:       string(payload.Status),
		Subtotal:     payload.Subtotal.InexactFloat64(),
		ComboSavings: payload.ComboSavings.InexactFloat64(),
		CouponAmount: payload.CouponDiscount.InexactFloat64(),
		ShippingFee:  payload.ShippingFee.InexactFloat64(),
		GSTAmount:    payload.GSTAmount.InexactFloat64(),
		Total:        payload.Total.InexactFloat64(),
		ItemCount:    payload.ItemCount,
		OccurredAt:   envelope.OccurredAt,
		IngestedAt:   ingestedAt,
		PayloadJSON:  string(envelope.Data),
	}
	if payload.CustomerID != nil {
		row.CustomerID = payload.CustomerID.String()
	}
	if payload.CouponCode != nil {
		row.CouponCode = *payload.CouponCode
	}
	if envelope.Actor != nil {
		row.ActorRole = envelope.Actor.Role
		row.ActorSession = envelope.Actor.SessionID
		if envelope.Actor.CustomerID != nil {
			row.ActorCustomer = envelope.Actor.CustomerID.String()
		}
	}
	return row, nil
}
