package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a seller listing priced in paise. FinalPricePaise is the
// standing discounted price; the deal columns carry a time-bound price that
// applies only while its window is open.
type Product struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID              uuid.UUID        `gorm:"column:seller_id;type:uuid;not null"`
	SKU                   string           `gorm:"column:sku;not null"`
	Name                  string           `gorm:"column:name;not null"`
	Description           *string          `gorm:"column:description"`
	Category              string           `gorm:"column:category;not null"`
	Brand                 *string          `gorm:"column:brand"`
	Tags                  pq.StringArray   `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	PricePaise            int64            `gorm:"column:price_paise;not null"`
	FinalPricePaise       *int64           `gorm:"column:final_price_paise"`
	CompareAtPaise        *int64           `gorm:"column:compare_at_paise"`
	DealPricePaise        *int64           `gorm:"column:deal_price_paise"`
	DealStartsAt          *time.Time       `gorm:"column:deal_starts_at"`
	DealEndsAt            *time.Time       `gorm:"column:deal_ends_at"`
	GSTRatePercent        float64          `gorm:"column:gst_rate_percent;type:numeric(5,2);not null;default:18"`
	CommissionRatePercent *float64         `gorm:"column:commission_rate_percent;type:numeric(5,2)"`
	Stock                 int              `gorm:"column:stock;not null;default:0"`
	WeightGrams           int              `gorm:"column:weight_grams;not null;default:500"`
	IsActive              bool             `gorm:"column:is_active;not null;default:true"`
	Variants              []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
