package enums

// OutboxEventType enumerates domain events emitted through the transactional
// outbox.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order.created"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventOrderDelivered  OutboxEventType = "order.delivered"
	EventPaymentCaptured OutboxEventType = "payment.captured"
	EventPaymentFailed   OutboxEventType = "payment.failed"
	EventPayoutSettled   OutboxEventType = "payout.settled"
	EventShipmentBooked  OutboxEventType = "shipment.booked"
)

// IsValid reports whether the event type is registered.
func (t OutboxEventType) IsValid() bool {
	switch t {
	case EventOrderCreated, EventOrderCancelled, EventOrderDelivered,
		EventPaymentCaptured, EventPaymentFailed, EventPayoutSettled,
		EventShipmentBooked:
		return true
	default:
		return false
	}
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregatePayout  OutboxAggregateType = "payout"
)
