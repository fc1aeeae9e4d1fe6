package registry

import (
	"encoding/json"

	"github.com/trovemart/trovemart-backend/pkg/enums"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
)

// NewDomainDecoderRegistry registers version 1 decoders for every domain
// event type so consumers can turn envelope data back into typed payloads.
func NewDomainDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderCreated, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderCreatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventOrderCancelled, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderCancelledEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventOrderDelivered, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderDeliveredEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventPaymentCaptured, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.PaymentCapturedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventPaymentFailed, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.PaymentFailedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventPayoutSettled, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.PayoutSettledEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	reg.Register(enums.EventShipmentBooked, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.ShipmentBookedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	return reg
}
