package sellers

import (
	"context"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/config"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Profile is the seller view the checkout and settlement flows operate on.
// CommissionRatePercent is always resolved, falling back to the platform
// default when the seller has no negotiated rate.
type Profile struct {
	ID                    uuid.UUID
	Name                  string
	GSTIN                 *string
	PickupAddress         *types.Address
	PayoutAccountID       *string
	CommissionRatePercent float64
	Active                bool
}

// PayoutReady reports whether the seller can receive gateway transfers.
func (p Profile) PayoutReady() bool {
	return p.Active && p.PayoutAccountID != nil && *p.PayoutAccountID != ""
}

// PickupPincode returns the seller's origin pincode, empty when no pickup
// address is on file.
func (p Profile) PickupPincode() string {
	if p.PickupAddress == nil {
		return ""
	}
	return p.PickupAddress.Pincode
}

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error)
}

type service struct {
	repo              Repository
	defaultCommission float64
}

// NewService wires the seller lookup service. The commission config supplies
// the platform-wide default rate.
func NewService(repo Repository, cfg config.CommissionConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sellers: repository is required")
	}
	return &service{repo: repo, defaultCommission: cfg.DefaultRatePercent}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := s.toProfile(*seller)
	return &profile, nil
}

// GetMany resolves every requested seller or fails. Checkout depends on each
// line's seller existing, so a missing row is an integrity error rather than
// a partial result.
func (s *service) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Profile, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found, err := s.repo.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	profiles := make(map[uuid.UUID]Profile, len(found))
	for _, seller := range found {
		profiles[seller.ID] = s.toProfile(seller)
	}
	for _, id := range unique {
		if _, ok := profiles[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller referenced by product does not exist").
				WithDetails(map[string]any{"seller_id": id})
		}
	}
	return profiles, nil
}

func (s *service) toProfile(seller models.Seller) Profile {
	rate := s.defaultCommission
	if seller.CommissionRatePercent != nil {
		rate = *seller.CommissionRatePercent
	}
	return Profile{
		ID:                    seller.ID,
		Name:                  seller.Name,
		GSTIN:                 seller.GSTIN,
		PickupAddress:         seller.PickupAddress,
		PayoutAccountID:       seller.RazorpayAccountID,
		CommissionRatePercent: rate,
		Active:                seller.IsActive,
	}
}
