package enums

// OrderStatus tracks the order-level fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusInTransit  OrderStatus = "in_transit"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusConfirmed, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are permitted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo enforces the forward-only order state machine. Cancellation
// is reachable from any pre-shipment-completion state; delivered only follows
// in_transit.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch target {
	case OrderStatusConfirmed:
		return s == OrderStatusProcessing
	case OrderStatusInTransit:
		return s == OrderStatusConfirmed
	case OrderStatusDelivered:
		return s == OrderStatusInTransit
	case OrderStatusCancelled:
		return s == OrderStatusProcessing || s == OrderStatusConfirmed || s == OrderStatusInTransit
	default:
		return false
	}
}
