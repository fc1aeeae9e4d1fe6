package coupons

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Evaluation is the read-only outcome of applying a coupon to priced lines.
type Evaluation struct {
	OfferID       uuid.UUID
	Code          string
	Description   string
	DiscountPaise int64
}

// Snapshot freezes the evaluation for persistence on the order.
func (e Evaluation) Snapshot() *types.CouponSnapshot {
	return &types.CouponSnapshot{
		OfferID:       e.OfferID,
		Code:          e.Code,
		Description:   e.Description,
		DiscountPaise: e.DiscountPaise,
	}
}

// Service evaluates coupons for preview and redeems them at commit.
// Evaluate never writes; only Redeem touches usage counters.
type Service interface {
	Evaluate(ctx context.Context, code string, lines []catalog.Priceable, userID uuid.UUID) (*Evaluation, error)
	Redeem(ctx context.Context, tx *gorm.DB, eval Evaluation, userID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons: repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Evaluate(ctx context.Context, code string, lines []catalog.Priceable, userID uuid.UUID) (*Evaluation, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	offer, err := s.repo.FindActiveByCode(ctx, code, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid or expired").
			WithDetails(map[string]any{"code": code})
	}

	if offer.UsageLimit > 0 && offer.UsedCount >= offer.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	if offer.PerUserLimit > 0 {
		used, err := s.repo.CountUserRedemptions(ctx, offer.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(offer.PerUserLimit) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already used the maximum number of times")
		}
	}

	var cartSubtotal int64
	for _, line := range lines {
		cartSubtotal += line.LineSubtotalPaise()
	}
	if cartSubtotal < offer.MinCartPaise {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart does not meet the coupon minimum").
			WithDetails(map[string]any{"min_cart_paise": offer.MinCartPaise})
	}

	validSubtotal := eligibleSubtotal(*offer, lines)
	if validSubtotal == 0 && offer.Scope != enums.OfferScopeCart {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon does not apply to any item in the cart")
	}

	discount := computeDiscount(*offer, validSubtotal)
	return &Evaluation{
		OfferID:       offer.ID,
		Code:          offer.Code,
		Description:   offer.Description,
		DiscountPaise: discount,
	}, nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, eval Evaluation, userID, orderID uuid.UUID) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	ok, err := repo.IncrementUsage(ctx, eval.OfferID)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}

	ok, err = repo.InsertRedemption(ctx, &models.OfferRedemption{
		ID:            uuid.New(),
		OfferID:       eval.OfferID,
		UserID:        userID,
		OrderID:       &orderID,
		DiscountPaise: eval.DiscountPaise,
	})
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon already used the maximum number of times")
	}
	return nil
}

// eligibleSubtotal sums the lines the offer's scope covers.
func eligibleSubtotal(offer models.Offer, lines []catalog.Priceable) int64 {
	if offer.Scope == enums.OfferScopeCart {
		var total int64
		for _, line := range lines {
			total += line.LineSubtotalPaise()
		}
		return total
	}

	targets := make(map[string]struct{}, len(offer.ScopeValues))
	for _, value := range offer.ScopeValues {
		targets[strings.ToLower(value)] = struct{}{}
	}

	var total int64
	for _, line := range lines {
		var key string
		switch offer.Scope {
		case enums.OfferScopeCategory:
			key = strings.ToLower(line.Category)
		case enums.OfferScopeBrand:
			key = strings.ToLower(line.Brand)
		case enums.OfferScopeProduct:
			key = strings.ToLower(line.ProductID.String())
		default:
			continue
		}
		if _, ok := targets[key]; ok {
			total += line.LineSubtotalPaise()
		}
	}
	return total
}

// computeDiscount applies the offer formula to the eligible subtotal.
// Percentage discounts floor to whole rupees.
func computeDiscount(offer models.Offer, validSubtotal int64) int64 {
	var discount int64
	switch offer.DiscountType {
	case enums.OfferDiscountFlat:
		discount = offer.DiscountValue
	case enums.OfferDiscountPercentage:
		raw := decimal.NewFromInt(validSubtotal).
			Mul(decimal.NewFromInt(offer.DiscountValue)).
			Div(decimal.NewFromInt(100))
		discount = raw.Div(decimal.NewFromInt(100)).Floor().Mul(decimal.NewFromInt(100)).IntPart()
		if offer.MaxDiscountPaise > 0 && discount > offer.MaxDiscountPaise {
			discount = offer.MaxDiscountPaise
		}
	}
	if discount > validSubtotal {
		discount = validSubtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
