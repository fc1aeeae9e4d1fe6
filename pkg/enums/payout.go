package enums

// PayoutStatus tracks one transfer attempt for one order item. An attempt is
// written as pending before the provider is called and finalized afterwards.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusSuccess PayoutStatus = "success"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// IsValid reports whether the value is a known payout attempt state.
func (s PayoutStatus) IsValid() bool {
	return s == PayoutStatusPending || s == PayoutStatusSuccess || s == PayoutStatusFailed
}

// RefundStatus marks whether a refund has been initiated for a cancelled
// online-paid order. Refund execution itself is driven by the provider.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusInitiated RefundStatus = "initiated"
)
