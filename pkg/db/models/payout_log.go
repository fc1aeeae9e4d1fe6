package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
)

// PayoutLog records one settlement attempt for a single order item. The row
// is inserted as pending before the transfer call so a crash mid-attempt
// leaves evidence, then finalized to success or failed. A successful or
// pending row per (order, item) makes later runs no-ops; retries after a
// finalized failure create new rows.
type PayoutLog struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index:idx_payout_logs_order_item"`
	OrderItemID       uuid.UUID          `gorm:"column:order_item_id;type:uuid;not null;index:idx_payout_logs_order_item"`
	SellerID          uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	Status            enums.PayoutStatus `gorm:"column:status;type:text;not null"`
	GrossPaise        int64              `gorm:"column:gross_paise;not null"`
	CommissionPaise   int64              `gorm:"column:commission_paise;not null"`
	NetPaise          int64              `gorm:"column:net_paise;not null"`
	GatewayTransferID *string            `gorm:"column:gateway_transfer_id"`
	FailureReason     *string            `gorm:"column:failure_reason"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
