package catalog

import "github.com/google/uuid"

// ItemRef points at a product (and optional variant) with a requested quantity.
type ItemRef struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Priceable is the catalog snapshot the pricing engine works from. Variant
// fields override the product's when a variant is referenced.
// BasePricePaise is the list price; FinalPricePaise is what the customer is
// charged after any standing discount or active deal, never above the base.
type Priceable struct {
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	SellerID        uuid.UUID
	SKU             string
	Name            string
	Category        string
	Brand           string
	BasePricePaise  int64
	FinalPricePaise int64
	GSTRatePercent  float64

	// CommissionRatePercent is the variant's rate, else the product's;
	// nil means the seller's (or platform default) rate applies.
	CommissionRatePercent *float64

	Stock       int
	WeightGrams int
	Quantity    int
}

// LineSubtotalPaise is the pre-coupon, pre-tax line amount at the charged
// price.
func (p Priceable) LineSubtotalPaise() int64 {
	return p.FinalPricePaise * int64(p.Quantity)
}
