package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// CouponSnapshot freezes the applied offer onto the order at commit time so
// later offer edits never change historical totals.
type CouponSnapshot struct {
	OfferID       uuid.UUID `json:"offer_id"`
	Code          string    `json:"code"`
	Description   string    `json:"description,omitempty"`
	DiscountPaise int64     `json:"discount_paise"`
}

// Value serializes the snapshot to JSON.
func (c *CouponSnapshot) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan decodes JSONB into the snapshot.
func (c *CouponSnapshot) Scan(value interface{}) error {
	if value == nil {
		*c = CouponSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}
