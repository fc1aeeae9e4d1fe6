package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/orders"
	"github.com/trovemart/trovemart-backend/internal/payments"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
	"github.com/trovemart/trovemart-backend/pkg/razorpay"
)

// inflightTTL bounds the advisory lock taken per order so a crashed
// settlement run cannot block retries forever.
const inflightTTL = 5 * time.Minute

// Transferrer is the slice of the gateway client used for settlement.
type Transferrer interface {
	CreateTransfer(ctx context.Context, req razorpay.TransferRequest) (*razorpay.Transfer, error)
}

// Locker serializes settlement runs per order across replicas.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// Service settles a paid order's items with their sellers, one transfer per
// item, and records every attempt in the payout audit trail.
type Service interface {
	Settle(ctx context.Context, orderID uuid.UUID) error
	History(ctx context.Context, orderID uuid.UUID) ([]models.PayoutLog, error)
}

type Deps struct {
	DB       *db.Client
	Repo     Repository
	Orders   orders.Repository
	Payments payments.Repository
	Sellers  sellers.Service
	Gateway  Transferrer
	Locker   Locker
	Outbox   *outbox.Service
	Logger   *logger.Logger
}

type service struct {
	deps Deps
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: db client is required")
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: repository is required")
	case deps.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: orders repository is required")
	case deps.Payments == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: payments repository is required")
	case deps.Sellers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: sellers service is required")
	case deps.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: gateway client is required")
	case deps.Locker == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: locker is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: outbox service is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payouts: logger is required")
	}
	return &service{deps: deps}, nil
}

// Settle transfers each unsettled item's line total to its seller. Items
// whose seller is not onboarded get a failed audit row and do not block the
// remaining items; items with an earlier pending or successful row are
// skipped, which makes repeated invocations safe.
func (s *service) Settle(ctx context.Context, orderID uuid.UUID) error {
	lockKey := s.deps.Locker.IdempotencyKey("payout:order", orderID.String())
	acquired, err := s.deps.Locker.SetNX(ctx, lockKey, "1", inflightTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payout lock unavailable")
	}
	if !acquired {
		return nil
	}
	defer func() {
		if delErr := s.deps.Locker.Del(ctx, lockKey); delErr != nil {
			s.deps.Logger.Warn(ctx, "failed to release payout lock")
		}
	}()

	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	payment, err := s.deps.Payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if payment.Status != enums.PaymentStatusSuccess {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment not captured, settlement refused").
			WithDetails(map[string]any{"payment_status": payment.Status})
	}

	settled, err := s.deps.Repo.SettledItemIDs(ctx, orderID)
	if err != nil {
		return err
	}

	sellerIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		sellerIDs = append(sellerIDs, item.SellerID)
	}
	profiles, err := s.deps.Sellers.GetMany(ctx, sellerIDs)
	if err != nil {
		return err
	}

	ctx = s.deps.Logger.WithOrderID(ctx, orderID.String())

	var itemErrs error
	for _, item := range order.Items {
		if _, done := settled[item.ID]; done {
			continue
		}
		if err := s.settleItem(ctx, order, item, profiles[item.SellerID]); err != nil {
			itemErrs = multierr.Append(itemErrs, err)
		}
	}
	if itemErrs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, itemErrs, "one or more item payouts failed")
	}

	s.deps.Logger.Info(ctx, "order settlement complete")
	return nil
}

func (s *service) settleItem(ctx context.Context, order *models.Order, item models.OrderItem, profile sellers.Profile) error {
	entry := models.PayoutLog{
		ID:              uuid.New(),
		OrderID:         order.ID,
		OrderItemID:     item.ID,
		SellerID:        item.SellerID,
		Status:          enums.PayoutStatusPending,
		GrossPaise:      item.LineTotalPaise,
		CommissionPaise: item.CommissionPaise,
		NetPaise:        item.SellerDuePaise,
	}

	if !profile.PayoutReady() {
		reason := "seller not onboarded"
		entry.Status = enums.PayoutStatusFailed
		entry.FailureReason = &reason
		if err := s.deps.Repo.Create(ctx, &entry); err != nil {
			return err
		}
		sellerCtx := s.deps.Logger.WithSellerID(ctx, item.SellerID.String())
		s.deps.Logger.Warn(sellerCtx, "payout skipped, seller not onboarded")
		return fmt.Errorf("item %s: seller %s not onboarded", item.ID, item.SellerID)
	}

	// The attempt goes on record before any money can move. A crash between
	// here and the finalize leaves a pending row, and pending rows keep the
	// item blocked until reconciled against the provider.
	if err := s.deps.Repo.Create(ctx, &entry); err != nil {
		return err
	}

	// Commission is recorded for reporting; the provider's route config
	// deducts it on their side, so the transfer moves the full line total.
	transfer, err := s.deps.Gateway.CreateTransfer(ctx, razorpay.TransferRequest{
		AccountID:   *profile.PayoutAccountID,
		AmountPaise: item.LineTotalPaise,
		Currency:    string(order.Currency),
		Notes: map[string]string{
			"order_number":  order.OrderNumber,
			"order_item_id": item.ID.String(),
		},
	})
	if err != nil {
		if finErr := s.deps.Repo.Finalize(ctx, entry.ID, map[string]any{
			"status":         enums.PayoutStatusFailed,
			"failure_reason": err.Error(),
		}); finErr != nil {
			return multierr.Append(err, finErr)
		}
		return fmt.Errorf("item %s: %w", item.ID, err)
	}

	return s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.deps.Repo.WithTx(tx).Finalize(ctx, entry.ID, map[string]any{
			"status":              enums.PayoutStatusSuccess,
			"gateway_transfer_id": transfer.ID,
		}); err != nil {
			return err
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutSettled,
			AggregateType: enums.AggregatePayout,
			AggregateID:   entry.ID,
			Data: payloads.PayoutSettledEvent{
				OrderID:         order.ID,
				SellerID:        item.SellerID,
				PayoutLogID:     entry.ID,
				NetPaise:        entry.NetPaise,
				CommissionPaise: entry.CommissionPaise,
				TransferID:      transfer.ID,
			},
		})
	})
}

// History returns the full audit trail for an order, oldest first.
func (s *service) History(ctx context.Context, orderID uuid.UUID) ([]models.PayoutLog, error) {
	if _, err := s.deps.Orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.deps.Repo.ListByOrder(ctx, orderID)
}
