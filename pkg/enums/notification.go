package enums

// NotificationType categorizes user-facing notification records.
type NotificationType string

const (
	NotificationOrderPlaced     NotificationType = "order_placed"
	NotificationOrderCancelled  NotificationType = "order_cancelled"
	NotificationOrderDelivered  NotificationType = "order_delivered"
	NotificationPaymentCaptured NotificationType = "payment_captured"
	NotificationPayoutSettled   NotificationType = "payout_settled"
	NotificationShipmentBooked  NotificationType = "shipment_booked"
)

// UserRole distinguishes the audiences the API serves.
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleSeller   UserRole = "seller"
	RoleAdmin    UserRole = "admin"
)

// IsValid reports whether the role is recognized.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}
