package enums

// OfferScope controls which cart lines a coupon's discount applies to.
type OfferScope string

const (
	OfferScopeCart     OfferScope = "cart"
	OfferScopeCategory OfferScope = "category"
	OfferScopeBrand    OfferScope = "brand"
	OfferScopeProduct  OfferScope = "product"
)

// IsValid reports whether the scope is one of the supported eligibility rules.
func (s OfferScope) IsValid() bool {
	switch s {
	case OfferScopeCart, OfferScopeCategory, OfferScopeBrand, OfferScopeProduct:
		return true
	default:
		return false
	}
}

// OfferDiscountType selects the discount formula.
type OfferDiscountType string

const (
	OfferDiscountFlat       OfferDiscountType = "flat"
	OfferDiscountPercentage OfferDiscountType = "percentage"
)

// IsValid reports whether the discount type is supported.
func (t OfferDiscountType) IsValid() bool {
	return t == OfferDiscountFlat || t == OfferDiscountPercentage
}
