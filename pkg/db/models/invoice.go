package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is the per-seller tax document cut from a multi-seller order.
// InvoiceNumber carries the order number plus a seller suffix (-A, -B, ...).
type Invoice struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID      uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	InvoiceNumber string    `gorm:"column:invoice_number;not null;uniqueIndex"`
	SubtotalPaise int64     `gorm:"column:subtotal_paise;not null"`
	GSTPaise      int64     `gorm:"column:gst_paise;not null;default:0"`
	TotalPaise    int64     `gorm:"column:total_paise;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
