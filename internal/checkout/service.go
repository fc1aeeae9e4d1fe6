package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/cart"
	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/internal/coupons"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	"github.com/trovemart/trovemart-backend/internal/shipping"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/metrics"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/outbox/payloads"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Service prices carts and commits orders. Quote performs no writes; Execute
// runs the whole commit inside one database transaction so a failure at any
// step leaves no trace.
type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Summary, error)
	Execute(ctx context.Context, req CommitRequest) (*models.Order, error)
}

type Deps struct {
	DB       *db.Client
	Carts    cart.Service
	CartRepo cart.Repository
	Catalog  catalog.Service
	CatRepo  catalog.Repository
	Sellers  sellers.Service
	Coupons  coupons.Service
	Shipping shipping.Service
	Outbox   *outbox.Service
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
}

type service struct {
	deps Deps
	now  func() time.Time
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: db client is required")
	case deps.Carts == nil || deps.CartRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: cart service and repository are required")
	case deps.Catalog == nil || deps.CatRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: catalog service and repository are required")
	case deps.Sellers == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: sellers service is required")
	case deps.Coupons == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: coupons service is required")
	case deps.Shipping == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: shipping service is required")
	case deps.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: outbox service is required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: logger is required")
	}
	return &service{deps: deps, now: time.Now}, nil
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Summary, error) {
	if err := validateRequest(req.ShippingAddress, req.PaymentMethod); err != nil {
		return nil, err
	}

	_, refs, err := s.deps.Carts.LoadForCheckout(ctx, nil, req.UserID)
	if err != nil {
		return nil, err
	}

	lines, err := s.deps.Catalog.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	groups, err := s.resolveGroups(ctx, lines)
	if err != nil {
		return nil, err
	}

	summary, _, err := s.price(ctx, groups, req.ShippingAddress, req.CouponCode, req.PaymentMethod, req.UserID, false)
	return summary, err
}

func (s *service) Execute(ctx context.Context, req CommitRequest) (*models.Order, error) {
	started := s.now()
	order, err := s.execute(ctx, req)

	method := string(req.PaymentMethod)
	s.deps.Metrics.ObserveDuration(method, s.now().Sub(started))
	if err != nil {
		reason := "internal"
		if coded := pkgerrors.As(err); coded != nil {
			reason = string(coded.Code())
		}
		s.deps.Metrics.IncFailure(method, reason)
		return nil, err
	}
	s.deps.Metrics.IncSuccess(method)
	return order, nil
}

func (s *service) execute(ctx context.Context, req CommitRequest) (*models.Order, error) {
	if err := validateRequest(req.ShippingAddress, req.PaymentMethod); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.deps.CartRepo.WithTx(tx)
		activeCart, refs, err := s.deps.Carts.LoadForCheckout(ctx, cartRepo, req.UserID)
		if err != nil {
			return err
		}

		// Re-resolve every line from the live catalog; client totals are
		// never trusted.
		lines, err := s.deps.Catalog.Resolve(ctx, refs)
		if err != nil {
			return err
		}

		groups, err := s.resolveGroups(ctx, lines)
		if err != nil {
			return err
		}

		summary, eval, err := s.price(ctx, groups, req.ShippingAddress, req.CouponCode, req.PaymentMethod, req.UserID, true)
		if err != nil {
			return err
		}

		catRepo := s.deps.CatRepo.WithTx(tx)
		for _, line := range lines {
			ok, err := catRepo.DecrementStock(ctx, line.ProductID, line.VariantID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock changed during checkout").
					WithDetails(map[string]any{"product_id": line.ProductID, "requested": line.Quantity})
			}
		}

		orderNumber, err := db.AllocateOrderNumber(tx, s.now().UTC())
		if err != nil {
			return err
		}

		order, err = s.buildOrder(req, orderNumber, groups, summary, eval)
		if err != nil {
			return err
		}
		if err := tx.Create(order).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to persist order")
		}

		if err := s.deps.Carts.Close(ctx, cartRepo, activeCart.ID); err != nil {
			return err
		}

		if eval != nil {
			if err := s.deps.Coupons.Redeem(ctx, tx, *eval, req.UserID, order.ID); err != nil {
				return err
			}
		}

		sellerIDs := make([]uuid.UUID, 0, len(groups))
		for _, group := range groups {
			sellerIDs = append(sellerIDs, group.Seller.ID)
		}
		return s.deps.Outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: req.UserID, Role: "customer"},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      req.UserID,
				SellerIDs:   sellerIDs,
				TotalPaise:  order.TotalPaise,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.deps.Logger.WithOrderID(ctx, order.ID.String())
	s.deps.Logger.Info(ctx, "order committed")
	return order, nil
}

// resolveGroups loads seller profiles for the priced lines and partitions the
// cart into deterministic seller groups.
func (s *service) resolveGroups(ctx context.Context, lines []catalog.Priceable) ([]sellerGroup, error) {
	sellerIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		sellerIDs = append(sellerIDs, line.SellerID)
	}
	profiles, err := s.deps.Sellers.GetMany(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}
	return groupBySeller(lines, profiles)
}

// price fills in delivery charges and the coupon discount. At commit time the
// rate resolver is retried once and then fails the whole operation; previews
// degrade to a zero charge with the missing flag set.
func (s *service) price(ctx context.Context, groups []sellerGroup, address types.Address, couponCode string, method enums.PaymentMethod, userID uuid.UUID, commit bool) (*Summary, *coupons.Evaluation, error) {
	summary := &Summary{Sellers: make([]SellerSummary, 0, len(groups))}

	var allLines []catalog.Priceable
	for _, group := range groups {
		allLines = append(allLines, group.Lines...)
	}

	for _, group := range groups {
		rateReq := shipping.RateRequest{
			OriginPincode:      group.Seller.PickupPincode(),
			DestinationPincode: address.Pincode,
			WeightGrams:        group.WeightGrams,
		}
		if method == enums.PaymentMethodCOD {
			rateReq.CODAmountPaise = group.SubtotalPaise + group.GSTPaise
		}

		var deliveryPaise int64
		var missing bool
		if commit {
			var err error
			deliveryPaise, err = s.deps.Shipping.CommitRate(ctx, rateReq)
			if err != nil {
				return nil, nil, err
			}
		} else {
			deliveryPaise, missing = s.deps.Shipping.PreviewRate(ctx, rateReq)
		}

		sellerSummary := SellerSummary{
			SellerID:           group.Seller.ID,
			SellerName:         group.Seller.Name,
			SubtotalPaise:      group.SubtotalPaise,
			GSTPaise:           group.GSTPaise,
			DeliveryFeePaise:   deliveryPaise,
			WeightGrams:        group.WeightGrams,
			DeliveryFeeMissing: missing,
		}
		for _, line := range group.Lines {
			sellerSummary.Lines = append(sellerSummary.Lines, LineSummary{
				ProductID:       line.ProductID,
				VariantID:       line.VariantID,
				SKU:             line.SKU,
				Name:            line.Name,
				Quantity:        line.Quantity,
				UnitPricePaise:  line.BasePricePaise,
				FinalPricePaise: line.FinalPricePaise,
				LineTotalPaise:  line.LineSubtotalPaise(),
				GSTPaise:        lineGSTPaise(line),
			})
		}

		summary.Sellers = append(summary.Sellers, sellerSummary)
		summary.SubtotalPaise += group.SubtotalPaise
		summary.GSTPaise += group.GSTPaise
		summary.DeliveryFeePaise += deliveryPaise
		summary.DeliveryFeeMissing = summary.DeliveryFeeMissing || missing
	}

	var eval *coupons.Evaluation
	if couponCode != "" {
		var err error
		eval, err = s.deps.Coupons.Evaluate(ctx, couponCode, allLines, userID)
		if err != nil {
			return nil, nil, err
		}
		summary.DiscountPaise = eval.DiscountPaise
		summary.Coupon = &CouponSummary{
			Code:          eval.Code,
			Description:   eval.Description,
			DiscountPaise: eval.DiscountPaise,
		}
	}

	summary.TotalPaise = summary.SubtotalPaise + summary.GSTPaise + summary.DeliveryFeePaise - summary.DiscountPaise
	return summary, eval, nil
}

// buildOrder assembles the order aggregate with frozen totals, per-line
// commission, per-seller invoices and the pending payment row.
func (s *service) buildOrder(req CommitRequest, orderNumber string, groups []sellerGroup, summary *Summary, eval *coupons.Evaluation) (*models.Order, error) {
	now := s.now().UTC()
	orderID := uuid.New()

	order := &models.Order{
		ID:               orderID,
		OrderNumber:      orderNumber,
		UserID:           req.UserID,
		Status:           enums.OrderStatusProcessing,
		DeliveryStatus:   enums.DeliveryStatusPending,
		PaymentMethod:    req.PaymentMethod,
		RefundStatus:     enums.RefundStatusNone,
		Currency:         enums.CurrencyINR,
		ShippingAddress:  req.ShippingAddress,
		SubtotalPaise:    summary.SubtotalPaise,
		DiscountPaise:    summary.DiscountPaise,
		GSTPaise:         summary.GSTPaise,
		DeliveryFeePaise: summary.DeliveryFeePaise,
		TotalPaise:       summary.TotalPaise,
		Timeline:         types.Timeline{}.Append(string(enums.OrderStatusProcessing), "order placed", now),
	}
	if eval != nil {
		order.CouponSnapshot = eval.Snapshot()
	}

	for position, group := range groups {
		for _, line := range group.Lines {
			rate := group.Seller.CommissionRatePercent
			if line.CommissionRatePercent != nil {
				rate = *line.CommissionRatePercent
			}
			commission := commissionPaise(line, rate)
			weight := line.WeightGrams
			if weight <= 0 {
				weight = defaultLineWeightGrams
			}
			order.Items = append(order.Items, models.OrderItem{
				ID:              uuid.New(),
				OrderID:         orderID,
				SellerID:        group.Seller.ID,
				ProductID:       line.ProductID,
				VariantID:       line.VariantID,
				SKU:             line.SKU,
				Name:            line.Name,
				Quantity:        line.Quantity,
				UnitPricePaise:  line.BasePricePaise,
				FinalPricePaise: line.FinalPricePaise,
				LineTotalPaise:  line.LineSubtotalPaise(),
				WeightGrams:     weight,
				GSTRatePercent:  line.GSTRatePercent,
				GSTPaise:        lineGSTPaise(line),
				CommissionPaise: commission,
				SellerDuePaise:  line.LineSubtotalPaise() - commission,
				DeliveryStatus:  enums.DeliveryStatusPending,
			})
		}

		sellerSummary := summary.Sellers[position]
		order.Invoices = append(order.Invoices, models.Invoice{
			ID:            uuid.New(),
			OrderID:       orderID,
			SellerID:      group.Seller.ID,
			InvoiceNumber: orderNumber + "-" + invoiceSuffix(position),
			SubtotalPaise: sellerSummary.SubtotalPaise,
			GSTPaise:      sellerSummary.GSTPaise,
			TotalPaise:    sellerSummary.SubtotalPaise + sellerSummary.GSTPaise + sellerSummary.DeliveryFeePaise,
		})
	}

	order.Payment = &models.Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		Method:      req.PaymentMethod,
		Status:      enums.PaymentStatusPending,
		AmountPaise: summary.TotalPaise,
	}
	return order, nil
}

func validateRequest(address types.Address, method enums.PaymentMethod) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}
	if missing := address.MissingFields(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	return nil
}
