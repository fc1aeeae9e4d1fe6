package coupons

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

// Repository reads offers and performs the commit-time usage accounting.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByCode(ctx context.Context, code string, now time.Time) (*models.Offer, error)
	CountUserRedemptions(ctx context.Context, offerID, userID uuid.UUID) (int64, error)

	// IncrementUsage bumps used_count only while the offer is active and
	// under its global limit. Returns false when the guard fails.
	IncrementUsage(ctx context.Context, offerID uuid.UUID) (bool, error)

	// InsertRedemption writes the per-user ledger row only while the user is
	// still under the offer's per-user limit, re-checked against the ledger
	// in the same statement. Returns false when the guard fails.
	InsertRedemption(ctx context.Context, redemption *models.OfferRedemption) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindActiveByCode(ctx context.Context, code string, now time.Time) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load offer")
	}
	return &offer, nil
}

func (r *repository) CountUserRedemptions(ctx context.Context, offerID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OfferRedemption{}).
		Where("offer_id = ? AND user_id = ?", offerID, userID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count offer redemptions")
	}
	return count, nil
}

func (r *repository) IncrementUsage(ctx context.Context, offerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE offers
		    SET used_count = used_count + 1, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ? AND is_active = ? AND (usage_limit = 0 OR used_count < usage_limit)`,
		offerID, true,
	)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to increment offer usage")
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) InsertRedemption(ctx context.Context, redemption *models.OfferRedemption) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO offer_redemptions (id, offer_id, user_id, order_id, discount_paise, created_at)
		 SELECT ?, o.id, ?, ?, ?, CURRENT_TIMESTAMP
		   FROM offers o
		  WHERE o.id = ?
		    AND (o.per_user_limit = 0
		         OR (SELECT COUNT(*) FROM offer_redemptions r
		              WHERE r.offer_id = o.id AND r.user_id = ?) < o.per_user_limit)`,
		redemption.ID, redemption.UserID, redemption.OrderID, redemption.DiscountPaise,
		redemption.OfferID, redemption.UserID,
	)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to record offer redemption")
	}
	return result.RowsAffected > 0, nil
}
