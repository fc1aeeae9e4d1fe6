package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trovemart/trovemart-backend/pkg/enums"
)

// Offer is a coupon definition. DiscountValue is paise for flat offers and a
// whole-number percent for percentage offers.
type Offer struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string                  `gorm:"column:code;not null;uniqueIndex"`
	Description      string                  `gorm:"column:description;not null"`
	Scope            enums.OfferScope        `gorm:"column:scope;type:text;not null;default:'cart'"`
	ScopeValues      pq.StringArray          `gorm:"column:scope_values;type:text[];not null;default:ARRAY[]::text[]"`
	DiscountType     enums.OfferDiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue    int64                   `gorm:"column:discount_value;not null"`
	MaxDiscountPaise int64                   `gorm:"column:max_discount_paise;not null;default:0"`
	MinCartPaise     int64                   `gorm:"column:min_cart_paise;not null;default:0"`
	UsageLimit       int                     `gorm:"column:usage_limit;not null;default:0"`
	UsedCount        int                     `gorm:"column:used_count;not null;default:0"`
	PerUserLimit     int                     `gorm:"column:per_user_limit;not null;default:0"`
	StartsAt         *time.Time              `gorm:"column:starts_at"`
	ExpiresAt        *time.Time              `gorm:"column:expires_at"`
	IsActive         bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
