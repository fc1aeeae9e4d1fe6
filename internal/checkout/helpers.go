package checkout

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

const defaultLineWeightGrams = 500

// sellerGroup is one seller's slice of the cart with the seller profile
// resolved. Groups are ordered by seller UUID ascending so invoice suffixes
// come out the same on every run.
type sellerGroup struct {
	Seller        sellers.Profile
	Lines         []catalog.Priceable
	SubtotalPaise int64
	GSTPaise      int64
	WeightGrams   int
}

// groupBySeller partitions priced lines by owning seller. Every seller must
// have a pickup address on file or the whole checkout fails; dropping one
// seller's lines would desynchronize the payment total.
func groupBySeller(lines []catalog.Priceable, profiles map[uuid.UUID]sellers.Profile) ([]sellerGroup, error) {
	bySeller := make(map[uuid.UUID][]catalog.Priceable)
	for _, line := range lines {
		bySeller[line.SellerID] = append(bySeller[line.SellerID], line)
	}

	ids := make([]uuid.UUID, 0, len(bySeller))
	for id := range bySeller {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	groups := make([]sellerGroup, 0, len(ids))
	for _, id := range ids {
		profile, ok := profiles[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller profile missing for cart line").
				WithDetails(map[string]any{"seller_id": id})
		}
		if profile.PickupPincode() == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller has no pickup address").
				WithDetails(map[string]any{"seller_id": id, "seller_name": profile.Name})
		}

		group := sellerGroup{Seller: profile, Lines: bySeller[id]}
		for _, line := range group.Lines {
			group.SubtotalPaise += line.LineSubtotalPaise()
			group.GSTPaise += lineGSTPaise(line)
			weight := line.WeightGrams
			if weight <= 0 {
				weight = defaultLineWeightGrams
			}
			group.WeightGrams += weight * line.Quantity
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// lineGSTPaise computes the GST amount for a line, rounded to whole paise.
func lineGSTPaise(line catalog.Priceable) int64 {
	return decimal.NewFromInt(line.LineSubtotalPaise()).
		Mul(decimal.NewFromFloat(line.GSTRatePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// commissionPaise is the platform's cut of one line at the seller's rate,
// rounded to whole paise.
func commissionPaise(line catalog.Priceable, ratePercent float64) int64 {
	return decimal.NewFromInt(line.LineSubtotalPaise()).
		Mul(decimal.NewFromFloat(ratePercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// invoiceSuffix maps a group position to A, B, ... Z, AA, AB and so on.
func invoiceSuffix(position int) string {
	suffix := ""
	n := position
	for {
		suffix = string(rune('A'+n%26)) + suffix
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return suffix
}
