package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/orders"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
	"github.com/trovemart/trovemart-backend/pkg/razorpay"
)

// webhookDedupTTL bounds how long a processed gateway event ID is remembered.
// Razorpay retries deliveries for up to a day.
const webhookDedupTTL = 48 * time.Hour

// Gateway is the slice of the payment provider client this service uses.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.GatewayOrder, error)
	VerifyWebhookSignature(body []byte, signature string) error
}

// DedupStore remembers processed webhook deliveries across replicas.
type DedupStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Settler kicks off seller settlement once an order is paid.
type Settler interface {
	Settle(ctx context.Context, orderID uuid.UUID) error
}

// InitiateResult carries what the client needs to open the gateway widget.
// COD orders have nothing to initiate and return only the method.
type InitiateResult struct {
	Method         enums.PaymentMethod `json:"method"`
	GatewayOrderID string              `json:"gateway_order_id,omitempty"`
	AmountPaise    int64               `json:"amount_paise"`
	Currency       string              `json:"currency"`
}

type Service interface {
	Initiate(ctx context.Context, orderID, userID uuid.UUID) (*InitiateResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error
	MarkCODCollected(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
}

type Deps struct {
	DB      *db.Client
	Repo    Repository
	Orders  orders.Repository
	Gateway Gateway
	Dedup   DedupStore
	Settler Settler
	Outbox  *outbox.Service
	Logger  *logger.Logger
}

type service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: db client is required")
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: repository is required")
	case deps.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: orders repository is required")
	case deps.Gateway == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: gateway client is required")
	case deps.Dedup == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: dedup store is required")
	case deps.Settler == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: settler is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: outbox service is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

// Initiate registers an online order with the gateway and binds the returned
// gateway order ID to the payment row. Calling it again reuses the existing
// binding instead of creating a second gateway order.
func (s *service) Initiate(ctx context.Context, orderID, userID uuid.UUID) (*InitiateResult, error) {
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	payment, err := s.deps.Repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending").
			WithDetails(map[string]any{"status": payment.Status})
	}

	result := &InitiateResult{
		Method:      payment.Method,
		AmountPaise: payment.AmountPaise,
		Currency:    string(order.Currency),
	}
	if payment.Method == enums.PaymentMethodCOD {
		return result, nil
	}

	if payment.GatewayOrderID != nil {
		result.GatewayOrderID = *payment.GatewayOrderID
		return result, nil
	}

	gwOrder, err := s.deps.Gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		AmountPaise: payment.AmountPaise,
		Currency:    string(order.Currency),
		Receipt:     order.OrderNumber,
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, err
	}
	if err := s.deps.Repo.Update(ctx, payment.ID, map[string]any{
		"gateway_order_id": gwOrder.ID,
	}); err != nil {
		return nil, err
	}

	ctx = s.deps.Logger.WithOrderID(ctx, orderID.String())
	s.deps.Logger.Info(ctx, "gateway order created")

	result.GatewayOrderID = gwOrder.ID
	return result, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				AmountPaise      int64  `json:"amount"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook processes a gateway delivery. Signature failures are security
// errors and nothing is mutated; replays of an already processed event ID are
// acknowledged without touching the database.
func (s *service) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) error {
	if err := s.deps.Gateway.VerifyWebhookSignature(body, signature); err != nil {
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	if eventID != "" {
		key := s.deps.Dedup.IdempotencyKey("webhook:razorpay", eventID)
		first, err := s.deps.Dedup.SetNX(ctx, key, "1", webhookDedupTTL)
		if err != nil {
			// Dedup store outage must not drop payments; the status guard
			// below keeps the mutation idempotent anyway.
			s.deps.Logger.Warn(ctx, "webhook dedup store unavailable")
		} else if !first {
			return nil
		}
	}

	switch event.Event {
	case "payment.captured":
		return s.capture(ctx, event)
	case "payment.failed":
		return s.fail(ctx, event)
	default:
		return nil
	}
}

func (s *service) capture(ctx context.Context, event webhookEvent) error {
	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing gateway order id")
	}

	var orderID uuid.UUID
	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		payment, err := repo.FindByGatewayOrderID(ctx, entity.OrderID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return nil
		}
		// A valid signature proves the sender, not the amount. A capture
		// for anything other than the owed amount never settles the order.
		if entity.AmountPaise != payment.AmountPaise {
			return pkgerrors.New(pkgerrors.CodeSecurity, "webhook capture amount does not match payment").
				WithDetails(map[string]any{
					"payment_id":     payment.ID,
					"expected_paise": payment.AmountPaise,
					"received_paise": entity.AmountPaise,
				})
		}
		orderID = payment.OrderID

		now := s.now().UTC()
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":             enums.PaymentStatusSuccess,
			"gateway_payment_id": entity.ID,
			"captured_at":        now,
		}); err != nil {
			return err
		}

		ordersRepo := s.deps.Orders.WithTx(tx)
		order, err := ordersRepo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status.CanTransitionTo(enums.OrderStatusConfirmed) {
			if err := ordersRepo.UpdateOrder(ctx, order.ID, map[string]any{
				"status":   enums.OrderStatusConfirmed,
				"timeline": order.Timeline.Append(string(enums.OrderStatusConfirmed), "payment captured", now),
			}); err != nil {
				return err
			}
		}

		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentCapturedEvent{
				OrderID:          payment.OrderID,
				PaymentID:        payment.ID,
				UserID:           order.UserID,
				Method:           payment.Method,
				AmountPaise:      payment.AmountPaise,
				GatewayPaymentID: entity.ID,
				CapturedAt:       now,
			},
		})
	})
	if err != nil {
		return err
	}
	if orderID == uuid.Nil {
		return nil
	}

	ctx = s.deps.Logger.WithOrderID(ctx, orderID.String())
	s.deps.Logger.Info(ctx, "payment captured")
	s.settle(ctx, orderID)
	return nil
}

func (s *service) fail(ctx context.Context, event webhookEvent) error {
	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing gateway order id")
	}

	return s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		payment, err := repo.FindByGatewayOrderID(ctx, entity.OrderID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return nil
		}

		updates := map[string]any{"status": enums.PaymentStatusFailed}
		if entity.ErrorDescription != "" {
			updates["failure_reason"] = entity.ErrorDescription
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return err
		}

		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentFailedEvent{
				OrderID:   payment.OrderID,
				PaymentID: payment.ID,
				Reason:    entity.ErrorDescription,
			},
		})
	})
}

// MarkCODCollected records cash received for a COD order and settles sellers.
func (s *service) MarkCODCollected(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.deps.Repo.WithTx(tx)
		payment, err := repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if payment.Method != enums.PaymentMethodCOD {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment method is not cash on delivery")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already settled").
				WithDetails(map[string]any{"status": payment.Status})
		}
		order, err := s.deps.Orders.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":            enums.PaymentStatusSuccess,
			"captured_at":       now,
			"cash_collected_at": now,
		}); err != nil {
			return err
		}

		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCaptured,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentCapturedEvent{
				OrderID:     payment.OrderID,
				PaymentID:   payment.ID,
				UserID:      order.UserID,
				Method:      payment.Method,
				AmountPaise: payment.AmountPaise,
				CapturedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, orderID)
	return s.deps.Repo.FindByOrderID(ctx, orderID)
}

// settle runs seller settlement after the capture transaction commits. A
// failure here is logged and retried by the next settlement trigger; the
// captured payment itself is safe.
func (s *service) settle(ctx context.Context, orderID uuid.UUID) {
	if err := s.deps.Settler.Settle(ctx, orderID); err != nil {
		s.deps.Logger.Error(ctx, "seller settlement failed after capture", err)
	}
}
