package enums

import "fmt"

// OutboxEventType is the canonical event_type for outbox routing.
type OutboxEventType string

const (
	OutboxEventOrderCreated   OutboxEventType = "order_created"
	OutboxEventOrderPaid      OutboxEventType = "order_paid"
	OutboxEventOrderCancelled OutboxEventType = "order_cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderCreated,
	OutboxEventOrderPaid,
	OutboxEventOrderCancelled,
}

// IsValid reports whether the value matches the canonical outbox event_type enum.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder OutboxAggregateType = "order"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	return o == OutboxAggregateOrder
}
