package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	"github.com/trovemart/trovemart-backend/internal/shipping"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
	"github.com/trovemart/trovemart-backend/pkg/pagination"
)

// Service drives the order lifecycle after commit: reads, the forward-only
// status machine, cancellation with stock restoration, and shipment booking.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, note string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID, reason string) (*models.Order, error)
	Ship(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkSellerDelivered(ctx context.Context, orderID, sellerID uuid.UUID, note string) (*models.Order, error)
}

type Deps struct {
	DB       *db.Client
	Repo     Repository
	CatRepo  catalog.Repository
	Sellers  sellers.Service
	Shipping shipping.Service
	Outbox   *outbox.Service
	Logger   *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: db client is required")
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: repository is required")
	case deps.CatRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: catalog repository is required")
	case deps.Sellers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: sellers service is required")
	case deps.Shipping == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: shipping service is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: outbox service is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	order, err := s.deps.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != nil && order.UserID != *userID {
		// Not found rather than forbidden, so order IDs cannot be probed.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return s.deps.Repo.ListByUser(ctx, userID, params)
}

// Transition moves the order one step forward. Skipping states is rejected,
// and delivered is refused until every item's parcel has been delivered
// through MarkSellerDelivered.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, note string) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if target == enums.OrderStatusCancelled {
		return s.Cancel(ctx, orderID, nil, note)
	}

	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": target})
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":   target,
			"timeline": order.Timeline.Append(string(target), note, now),
		}

		switch target {
		case enums.OrderStatusInTransit:
			updates["delivery_status"] = enums.DeliveryStatusShipped
			if err := repo.UpdateItemsStatus(ctx, orderID, enums.DeliveryStatusShipped); err != nil {
				return err
			}
		case enums.OrderStatusDelivered:
			for _, item := range order.Items {
				if item.DeliveryStatus != enums.DeliveryStatusDelivered {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "order has undelivered items").
						WithDetails(map[string]any{
							"order_item_id":   item.ID,
							"delivery_status": item.DeliveryStatus,
						})
				}
			}
			updates["delivery_status"] = enums.DeliveryStatusDelivered
			updates["delivered_at"] = now
			if err := s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.OrderDeliveredEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					UserID:      order.UserID,
					DeliveredAt: now,
				},
			}); err != nil {
				return err
			}
		}

		return repo.UpdateOrder(ctx, orderID, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.deps.Repo.FindByID(ctx, orderID)
}

// Cancel aborts a pre-shipment order: every line's stock is restored with the
// same conditional update the commit used in reverse, and captured online
// payments are flagged for refund initiation.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID, reason string) (*models.Order, error) {
	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if userID != nil && order.UserID != *userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}
		for _, item := range order.Items {
			if item.DeliveryStatus.HasShipped() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has shipped items and cannot be cancelled").
					WithDetails(map[string]any{"order_item_id": item.ID})
			}
		}

		catRepo := s.deps.CatRepo.WithTx(tx)
		for _, item := range order.Items {
			if err := catRepo.RestoreStock(ctx, item.ProductID, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		refund := enums.RefundStatusNone
		if order.Payment != nil &&
			order.Payment.Method == enums.PaymentMethodOnline &&
			order.Payment.Status == enums.PaymentStatusSuccess {
			refund = enums.RefundStatusInitiated
		}

		if err := repo.UpdateItemsStatus(ctx, orderID, enums.DeliveryStatusCancelled); err != nil {
			return err
		}
		updates := map[string]any{
			"status":          enums.OrderStatusCancelled,
			"delivery_status": enums.DeliveryStatusCancelled,
			"refund_status":   refund,
			"cancelled_at":    now,
			"timeline":        order.Timeline.Append(string(enums.OrderStatusCancelled), reason, now),
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return err
		}

		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				CancelledAt: now,
				Refund:      refund,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.deps.Logger.WithOrderID(ctx, orderID.String())
	s.deps.Logger.Info(ctx, "order cancelled")
	return s.deps.Repo.FindByID(ctx, orderID)
}

// Items committed before catalog weights were recorded carry zero grams.
const fallbackItemWeightGrams = 500

// Ship books one parcel per seller group of a confirmed order. Bookings that
// fail leave their group untouched and are retried on the next call; the
// order moves to in_transit only once every item has a waybill.
func (s *service) Ship(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.deps.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed orders can be shipped").
			WithDetails(map[string]any{"status": order.Status})
	}

	pending := map[uuid.UUID][]models.OrderItem{}
	for _, item := range order.Items {
		if item.WaybillNumber == nil {
			pending[item.SellerID] = append(pending[item.SellerID], item)
		}
	}

	sellerIDs := make([]uuid.UUID, 0, len(pending))
	for id := range pending {
		sellerIDs = append(sellerIDs, id)
	}
	profiles, err := s.deps.Sellers.GetMany(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}

	var bookErrs error
	for sellerID, items := range pending {
		profile := profiles[sellerID]

		weight := 0
		var codPaise int64
		for _, item := range items {
			unit := item.WeightGrams
			if unit <= 0 {
				unit = fallbackItemWeightGrams
			}
			weight += unit * item.Quantity
			if order.PaymentMethod == enums.PaymentMethodCOD {
				codPaise += item.LineTotalPaise + item.GSTPaise
			}
		}

		waybill, err := s.deps.Shipping.Book(ctx, shipping.BookingRequest{
			OrderNumber:        order.OrderNumber,
			SellerName:         profile.Name,
			OriginPincode:      profile.PickupPincode(),
			DestinationAddress: order.ShippingAddress,
			WeightGrams:        weight,
			CODAmountPaise:     codPaise,
		})
		if err != nil {
			sellerCtx := s.deps.Logger.WithSellerID(ctx, sellerID.String())
			s.deps.Logger.Error(sellerCtx, "shipment booking failed", err)
			bookErrs = multierr.Append(bookErrs, err)
			continue
		}

		err = s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.deps.Repo.WithTx(tx)
			if err := repo.StampSellerShipment(ctx, orderID, sellerID, waybill); err != nil {
				return err
			}
			return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventShipmentBooked,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Data: payloads.ShipmentBookedEvent{
					OrderID:       order.ID,
					SellerID:      sellerID,
					WaybillNumber: waybill,
				},
			})
		})
		if err != nil {
			bookErrs = multierr.Append(bookErrs, err)
		}
	}
	if bookErrs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, bookErrs, "one or more shipments could not be booked")
	}

	return s.Transition(ctx, orderID, enums.OrderStatusInTransit, "all parcels handed to carrier")
}

// MarkSellerDelivered records delivery of one seller's parcel. The order
// advances to delivered, with the delivery time stamped and the domain event
// emitted, only when this parcel was the last one outstanding.
func (s *service) MarkSellerDelivered(ctx context.Context, orderID, sellerID uuid.UUID, note string) (*models.Order, error) {
	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusInTransit {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only in-transit orders can record deliveries").
				WithDetails(map[string]any{"status": order.Status})
		}

		sellerItems := 0
		othersDelivered := true
		for _, item := range order.Items {
			if item.SellerID != sellerID {
				if item.DeliveryStatus != enums.DeliveryStatusDelivered {
					othersDelivered = false
				}
				continue
			}
			sellerItems++
			if !item.DeliveryStatus.HasShipped() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "seller parcel has not shipped").
					WithDetails(map[string]any{"order_item_id": item.ID})
			}
		}
		if sellerItems == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "seller has no items on this order")
		}

		if err := repo.UpdateSellerItemsStatus(ctx, orderID, sellerID, enums.DeliveryStatusDelivered); err != nil {
			return err
		}
		if !othersDelivered {
			return nil
		}

		now := s.now().UTC()
		updates := map[string]any{
			"status":          enums.OrderStatusDelivered,
			"delivery_status": enums.DeliveryStatusDelivered,
			"delivered_at":    now,
			"timeline":        order.Timeline.Append(string(enums.OrderStatusDelivered), note, now),
		}
		if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
			return err
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.deps.Repo.FindByID(ctx, orderID)
}
