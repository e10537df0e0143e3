package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// CartRecord is the server-held projection of a customer session's cart.
// One active record per session; it becomes durable only once converted into
// an order at checkout.
type CartRecord struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID  string             `gorm:"column:session_id;not null;index:ix_carts_session"`
	CustomerID *uuid.UUID         `gorm:"column:customer_id;type:uuid"`
	Channel    enums.SalesChannel `gorm:"column:channel;type:sales_channel;not null;default:'retail'"`
	Status     enums.CartStatus   `gorm:"column:status;type:cart_status;not null;default:'active'"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	// UnavailableItems is written only by the sanitizer and fully replaced on
	// every run. AppliedCombo is a display snapshot, never binding.
	UnavailableItems types.UnavailableItems `gorm:"column:unavailable_items;type:jsonb;serializer:json"`
	AppliedCombo     *types.AppliedCombo    `gorm:"column:applied_combo;type:jsonb;serializer:json"`

	SanitizedAt *time.Time `gorm:"column:sanitized_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
