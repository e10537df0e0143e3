package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// ComboOffer is a quantity-based promotional price: buy at least MinQuantity
// eligible items for a fixed ComboPrice.
type ComboOffer struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string             `gorm:"column:name;not null"`
	MinQuantity int                `gorm:"column:min_quantity;not null"`
	ComboPrice  decimal.Decimal    `gorm:"column:combo_price;type:numeric(12,2);not null"`
	Channel     enums.SalesChannel `gorm:"column:channel;type:sales_channel;not null;default:'retail'"`
	StartsAt    *time.Time         `gorm:"column:starts_at"`
	EndsAt      *time.Time         `gorm:"column:ends_at"`
	IsActive    bool               `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ActiveAt reports whether the offer is live at the given instant.
func (c *ComboOffer) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
