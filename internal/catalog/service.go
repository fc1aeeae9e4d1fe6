package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

// Service resolves cart references into priceable catalog snapshots.
type Service interface {
	Resolve(ctx context.Context, refs []ItemRef) ([]Priceable, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Resolve loads every referenced product, applies variant overrides, fixes
// the charged price, and verifies each line is purchasable. Stock failures
// carry the available quantity so the client can offer a reduced-quantity
// retry.
func (s *service) Resolve(ctx context.Context, refs []ItemRef) ([]Priceable, error) {
	if len(refs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	ids := make([]uuid.UUID, 0, len(refs))
	seen := map[uuid.UUID]struct{}{}
	for _, ref := range refs {
		if ref.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id is required")
		}
		if ref.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, ok := seen[ref.ProductID]; !ok {
			seen[ref.ProductID] = struct{}{}
			ids = append(ids, ref.ProductID)
		}
	}

	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := s.now().UTC()
	resolved := make([]Priceable, 0, len(refs))
	for _, ref := range refs {
		product, ok := byID[ref.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": ref.ProductID})
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is unavailable").
				WithDetails(map[string]any{"product_id": ref.ProductID})
		}

		item := Priceable{
			ProductID:             product.ID,
			SellerID:              product.SellerID,
			SKU:                   product.SKU,
			Name:                  product.Name,
			Category:              product.Category,
			BasePricePaise:        product.PricePaise,
			GSTRatePercent:        product.GSTRatePercent,
			CommissionRatePercent: product.CommissionRatePercent,
			Stock:                 product.Stock,
			WeightGrams:           product.WeightGrams,
			Quantity:              ref.Quantity,
		}
		if product.Brand != nil {
			item.Brand = *product.Brand
		}

		var variant *models.ProductVariant
		if ref.VariantID != nil {
			variant = findVariant(product, *ref.VariantID)
			if variant == nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
					WithDetails(map[string]any{"product_id": ref.ProductID, "variant_id": *ref.VariantID})
			}
			if !variant.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "product variant is unavailable").
					WithDetails(map[string]any{"variant_id": *ref.VariantID})
			}
			variantID := variant.ID
			item.VariantID = &variantID
			item.SKU = variant.SKU
			item.Name = fmt.Sprintf("%s (%s)", product.Name, variant.Label)
			item.BasePricePaise = variant.PricePaise
			item.Stock = variant.Stock
			if variant.CommissionRatePercent != nil {
				item.CommissionRatePercent = variant.CommissionRatePercent
			}
		}

		item.FinalPricePaise = chargedPricePaise(product, variant, item.BasePricePaise, now)

		if item.Stock < ref.Quantity {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": ref.ProductID,
					"requested":  ref.Quantity,
					"available":  item.Stock,
				})
		}

		resolved = append(resolved, item)
	}

	return resolved, nil
}

// chargedPricePaise picks the price the customer pays: an explicit variant
// final price wins, then the product final price, then the deal price while
// its window contains now. The charged price never exceeds the list price.
func chargedPricePaise(product models.Product, variant *models.ProductVariant, basePaise int64, now time.Time) int64 {
	final := basePaise
	switch {
	case variant != nil && variant.FinalPricePaise != nil:
		final = *variant.FinalPricePaise
	case product.FinalPricePaise != nil:
		final = *product.FinalPricePaise
	case dealActive(product, now):
		final = *product.DealPricePaise
	}
	if final < 0 || final > basePaise {
		return basePaise
	}
	return final
}

func dealActive(product models.Product, now time.Time) bool {
	if product.DealPricePaise == nil || product.DealStartsAt == nil || product.DealEndsAt == nil {
		return false
	}
	return !now.Before(*product.DealStartsAt) && now.Before(*product.DealEndsAt)
}

func findVariant(product models.Product, variantID uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
