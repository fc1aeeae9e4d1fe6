package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
)

// Repository writes and reads the payout audit trail. An attempt is inserted
// pending and finalized in place once the provider answers; a retry after a
// finalized failure writes a new row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.PayoutLog) error
	Finalize(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PayoutLog, error)
	SettledItemIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]struct{}, error)
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

func (r *repository) Create(ctx context.Context, log *models.PayoutLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to insert payout log")
	}
	return nil
}

func (r *repository) Finalize(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	err := r.db.WithContext(ctx).Model(&models.PayoutLog{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to finalize payout log")
	}
	return nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PayoutLog, error) {
	var logs []models.PayoutLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list payout logs")
	}
	return logs, nil
}

// SettledItemIDs returns the items of the order that must not be transferred
// again. Pending rows count: an interrupted run may have moved money, so its
// items stay blocked until the row is reconciled against the provider.
func (r *repository) SettledItemIDs(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PayoutLog{}).
		Where("order_id = ? AND status IN ?", orderID,
			[]enums.PayoutStatus{enums.PayoutStatusPending, enums.PayoutStatusSuccess}).
		Pluck("order_item_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load settled items")
	}
	settled := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		settled[id] = struct{}{}
	}
	return settled, nil
}
