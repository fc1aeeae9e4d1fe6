package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
)

// Payment tracks capture progress for an order. Online payments carry the
// gateway order and payment identifiers; COD rows stay pending until an
// operator marks the cash as collected.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Method           enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountPaise      int64               `gorm:"column:amount_paise;not null"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;index"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CapturedAt       *time.Time          `gorm:"column:captured_at"`
	CashCollectedAt  *time.Time          `gorm:"column:cash_collected_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
