package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant overrides price and stock for a specific option of a product.
type ProductVariant struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID             uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SKU                   string    `gorm:"column:sku;not null"`
	Label                 string    `gorm:"column:label;not null"`
	PricePaise            int64     `gorm:"column:price_paise;not null"`
	FinalPricePaise       *int64    `gorm:"column:final_price_paise"`
	CommissionRatePercent *float64  `gorm:"column:commission_rate_percent;type:numeric(5,2)"`
	Stock                 int       `gorm:"column:stock;not null;default:0"`
	IsActive              bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
