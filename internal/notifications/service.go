package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
	"github.com/trovemart/trovemart-backend/pkg/pagination"
)

// Service materializes in-app notifications from consumed domain events and
// serves the per-user notification feed.
type Service interface {
	Ingest(ctx context.Context, eventType enums.OutboxEventType, payload any) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, string, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications: repository is required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications: logger is required")
	}
	return &service{repo: repo, log: log, now: time.Now}, nil
}

// Ingest maps one domain event to zero or more notification rows. Unknown
// payload shapes are dropped rather than retried, since redelivery cannot
// fix them.
func (s *service) Ingest(ctx context.Context, eventType enums.OutboxEventType, payload any) error {
	switch event := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.UserID,
			Role:    enums.RoleCustomer,
			Type:    enums.NotificationOrderPlaced,
			Title:   "Order placed",
			Message: fmt.Sprintf("Your order %s has been placed.", event.OrderNumber),
		})
	case *payloads.OrderCancelledEvent:
		message := fmt.Sprintf("Your order %s has been cancelled.", event.OrderNumber)
		if event.Refund == enums.RefundStatusInitiated {
			message += " A refund has been initiated."
		}
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.UserID,
			Role:    enums.RoleCustomer,
			Type:    enums.NotificationOrderCancelled,
			Title:   "Order cancelled",
			Message: message,
		})
	case *payloads.OrderDeliveredEvent:
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.UserID,
			Role:    enums.RoleCustomer,
			Type:    enums.NotificationOrderDelivered,
			Title:   "Order delivered",
			Message: fmt.Sprintf("Your order %s has been delivered.", event.OrderNumber),
		})
	case *payloads.PaymentCapturedEvent:
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.UserID,
			Role:    enums.RoleCustomer,
			Type:    enums.NotificationPaymentCaptured,
			Title:   "Payment received",
			Message: fmt.Sprintf("We received your payment of %s.", formatPaise(event.AmountPaise)),
		})
	case *payloads.PayoutSettledEvent:
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.SellerID,
			Role:    enums.RoleSeller,
			Type:    enums.NotificationPayoutSettled,
			Title:   "Payout settled",
			Message: fmt.Sprintf("A payout of %s has been transferred to your account.", formatPaise(event.NetPaise)),
		})
	case *payloads.ShipmentBookedEvent:
		return s.repo.Create(ctx, &models.Notification{
			ID:      uuid.New(),
			UserID:  event.SellerID,
			Role:    enums.RoleSeller,
			Type:    enums.NotificationShipmentBooked,
			Title:   "Shipment booked",
			Message: fmt.Sprintf("Waybill %s has been assigned to your parcel.", event.WaybillNumber),
		})
	default:
		ctx = s.log.WithField(ctx, "event_type", string(eventType))
		s.log.Warn(ctx, "no notification mapping for event")
		return nil
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, string, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID, s.now().UTC())
}

func formatPaise(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}
