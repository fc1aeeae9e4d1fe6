package checkout

import (
	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/enums"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// QuoteRequest prices the user's active cart without side effects.
type QuoteRequest struct {
	UserID          uuid.UUID
	ShippingAddress types.Address
	CouponCode      string
	PaymentMethod   enums.PaymentMethod
}

// CommitRequest places the order. Totals are always recomputed server-side;
// nothing price-shaped is accepted from the client.
type CommitRequest struct {
	UserID          uuid.UUID
	ShippingAddress types.Address
	CouponCode      string
	PaymentMethod   enums.PaymentMethod
}

// LineSummary is one priced cart line in a quote response.
type LineSummary struct {
	ProductID       uuid.UUID  `json:"product_id"`
	VariantID       *uuid.UUID `json:"variant_id,omitempty"`
	SKU             string     `json:"sku"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	UnitPricePaise  int64      `json:"unit_price_paise"`
	FinalPricePaise int64      `json:"final_price_paise"`
	LineTotalPaise  int64      `json:"line_total_paise"`
	GSTPaise        int64      `json:"gst_paise"`
}

// SellerSummary is one seller's share of the quote, shipped as one parcel.
type SellerSummary struct {
	SellerID           uuid.UUID     `json:"seller_id"`
	SellerName         string        `json:"seller_name"`
	Lines              []LineSummary `json:"lines"`
	SubtotalPaise      int64         `json:"subtotal_paise"`
	GSTPaise           int64         `json:"gst_paise"`
	DeliveryFeePaise   int64         `json:"delivery_fee_paise"`
	WeightGrams        int           `json:"weight_grams"`
	DeliveryFeeMissing bool          `json:"delivery_fee_missing,omitempty"`
}

// CouponSummary reflects the applied coupon in a quote response.
type CouponSummary struct {
	Code          string `json:"code"`
	Description   string `json:"description,omitempty"`
	DiscountPaise int64  `json:"discount_paise"`
}

// Summary is the full priced cart. TotalPaise always equals
// SubtotalPaise + GSTPaise + DeliveryFeePaise - DiscountPaise.
type Summary struct {
	Sellers            []SellerSummary `json:"sellers"`
	SubtotalPaise      int64           `json:"subtotal_paise"`
	GSTPaise           int64           `json:"gst_paise"`
	DeliveryFeePaise   int64           `json:"delivery_fee_paise"`
	DiscountPaise      int64           `json:"discount_paise"`
	TotalPaise         int64           `json:"total_paise"`
	Coupon             *CouponSummary  `json:"coupon,omitempty"`
	DeliveryFeeMissing bool            `json:"delivery_fee_missing,omitempty"`
}
