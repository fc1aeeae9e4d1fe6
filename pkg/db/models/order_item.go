package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
)

// OrderItem snapshots one purchased line. UnitPricePaise is the list price
// and FinalPricePaise the charged price after any standing discount or deal;
// line totals, commission and the seller's due are all computed on the
// charged price at commit time.
type OrderItem struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID        uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductID       uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	VariantID       *uuid.UUID           `gorm:"column:variant_id;type:uuid"`
	SKU             string               `gorm:"column:sku;not null"`
	Name            string               `gorm:"column:name;not null"`
	Quantity        int                  `gorm:"column:quantity;not null"`
	UnitPricePaise  int64                `gorm:"column:unit_price_paise;not null"`
	FinalPricePaise int64                `gorm:"column:final_price_paise;not null"`
	LineTotalPaise  int64                `gorm:"column:line_total_paise;not null"`
	WeightGrams     int                  `gorm:"column:weight_grams;not null;default:0"`
	GSTRatePercent  float64              `gorm:"column:gst_rate_percent;type:numeric(5,2);not null"`
	GSTPaise        int64                `gorm:"column:gst_paise;not null;default:0"`
	CommissionPaise int64                `gorm:"column:commission_paise;not null;default:0"`
	SellerDuePaise  int64                `gorm:"column:seller_due_paise;not null;default:0"`
	DeliveryStatus  enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'pending'"`
	WaybillNumber   *string              `gorm:"column:waybill_number"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
