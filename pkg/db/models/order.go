package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Order is a per-customer order spanning one or more sellers. Totals are
// frozen at commit time and never recomputed from items afterwards.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        string                `gorm:"column:order_number;not null;uniqueIndex"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'processing'"`
	DeliveryStatus     enums.DeliveryStatus  `gorm:"column:delivery_status;type:text;not null;default:'pending'"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	RefundStatus       enums.RefundStatus    `gorm:"column:refund_status;type:text;not null;default:'none'"`
	Currency           enums.Currency        `gorm:"column:currency;type:text;not null;default:'INR'"`
	ShippingAddress    types.Address         `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	SubtotalPaise      int64                 `gorm:"column:subtotal_paise;not null"`
	DiscountPaise      int64                 `gorm:"column:discount_paise;not null;default:0"`
	GSTPaise           int64                 `gorm:"column:gst_paise;not null;default:0"`
	DeliveryFeePaise   int64                 `gorm:"column:delivery_fee_paise;not null;default:0"`
	TotalPaise         int64                 `gorm:"column:total_paise;not null"`
	CouponSnapshot     *types.CouponSnapshot `gorm:"column:coupon_snapshot;type:jsonb;serializer:json"`
	DeliveryFeeMissing bool                  `gorm:"column:delivery_fee_missing;not null;default:false"`
	Timeline           types.Timeline        `gorm:"column:timeline;type:jsonb;serializer:json"`
	Items              []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Invoices           []Invoice             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment            *Payment              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt        *time.Time            `gorm:"column:delivered_at"`
	CancelledAt        *time.Time            `gorm:"column:cancelled_at"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
