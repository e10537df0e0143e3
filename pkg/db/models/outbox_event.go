package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// OutboxEvent is a transactional outbox row awaiting publication.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null;uniqueIndex:ux_outbox_events_event_aggregate,priority:1"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null;uniqueIndex:ux_outbox_events_event_aggregate,priority:2"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;uniqueIndex:ux_outbox_events_event_aggregate,priority:3"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`

	PublishedAt *time.Time `gorm:"column:published_at;index:ix_outbox_events_unpublished,where:published_at IS NULL"`
	Attempts    int        `gorm:"column:attempts;not null;default:0"`
	LastError   *string    `gorm:"column:last_error"`
	Terminal    bool       `gorm:"column:terminal;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
