package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/enums"
)

// Coupon is a redeemable discount code validated against the cart subtotal.
type Coupon struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string           `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	Type        enums.CouponType `gorm:"column:type;type:coupon_type;not null"`
	Value       decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MinSubtotal decimal.Decimal  `gorm:"column:min_subtotal;type:numeric(12,2);not null;default:0"`
	MaxDiscount *decimal.Decimal `gorm:"column:max_discount;type:numeric(12,2)"`
	ExpiresAt   *time.Time       `gorm:"column:expires_at"`
	UsageLimit  *int             `gorm:"column:usage_limit"`
	UsedCount   int              `gorm:"column:used_count;not null;default:0"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
