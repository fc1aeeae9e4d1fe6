package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Seller holds the marketplace-side profile of a vendor, including the
// settlement account used for payout transfers.
type Seller struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                  string         `gorm:"column:name;not null"`
	Email                 string         `gorm:"column:email;not null;uniqueIndex"`
	GSTIN                 *string        `gorm:"column:gstin"`
	PickupAddress         *types.Address `gorm:"column:pickup_address;type:jsonb;serializer:json"`
	RazorpayAccountID     *string        `gorm:"column:razorpay_account_id"`
	CommissionRatePercent *float64       `gorm:"column:commission_rate_percent;type:numeric(5,2)"`
	IsActive              bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
