package models

import (
	"time"

	"github.com/google/uuid"
)

// OfferRedemption records one committed use of an offer by a user.
type OfferRedemption struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OfferID       uuid.UUID  `gorm:"column:offer_id;type:uuid;not null;index"`
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID       *uuid.UUID `gorm:"column:order_id;type:uuid"`
	DiscountPaise int64      `gorm:"column:discount_paise;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
