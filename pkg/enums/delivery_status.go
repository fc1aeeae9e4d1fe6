package enums

// DeliveryStatus is tracked per order item so multi-seller orders can ship
// independently.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

// IsValid reports whether the value is a known per-item delivery state.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusShipped, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	default:
		return false
	}
}

// HasShipped reports whether the item already left the seller, which blocks
// order cancellation.
func (s DeliveryStatus) HasShipped() bool {
	return s == DeliveryStatusShipped || s == DeliveryStatusDelivered
}
