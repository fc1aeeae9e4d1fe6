package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
)

// OrderCreatedEvent signals a committed checkout.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uuid.UUID   `json:"user_id"`
	SellerIDs   []uuid.UUID `json:"seller_ids"`
	TotalPaise  int64       `json:"total_paise"`
}

// OrderCancelledEvent is emitted whenever a pre-transit order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      uuid.UUID          `json:"user_id"`
	CancelledAt time.Time          `json:"cancelled_at"`
	Refund      enums.RefundStatus `json:"refund"`
	Reason      string             `json:"reason,omitempty"`
}

// OrderDeliveredEvent surfaces the terminal delivery transition.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// PaymentCapturedEvent reports a captured payment for an order.
type PaymentCapturedEvent struct {
	OrderID          uuid.UUID           `json:"order_id"`
	PaymentID        uuid.UUID           `json:"payment_id"`
	UserID           uuid.UUID           `json:"user_id"`
	Method           enums.PaymentMethod `json:"method"`
	AmountPaise      int64               `json:"amount_paise"`
	GatewayPaymentID string              `json:"gateway_payment_id,omitempty"`
	CapturedAt       time.Time           `json:"captured_at"`
}

// PaymentFailedEvent reports a failed capture attempt.
type PaymentFailedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Reason    string    `json:"reason,omitempty"`
}

// PayoutSettledEvent is emitted once a seller's share has been transferred.
type PayoutSettledEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	SellerID        uuid.UUID `json:"seller_id"`
	PayoutLogID     uuid.UUID `json:"payout_log_id"`
	NetPaise        int64     `json:"net_paise"`
	CommissionPaise int64     `json:"commission_paise"`
	TransferID      string    `json:"transfer_id,omitempty"`
}

// ShipmentBookedEvent carries the waybill assigned to a seller parcel.
type ShipmentBookedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	WaybillNumber string    `json:"waybill_number"`
}
