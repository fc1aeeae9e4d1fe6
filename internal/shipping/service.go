package shipping

import (
	"context"

	"github.com/trovemart/trovemart-backend/pkg/delhivery"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

// Carrier is the slice of the courier client the shipping service uses.
type Carrier interface {
	GetQuote(ctx context.Context, req delhivery.QuoteRequest) (*delhivery.Quote, error)
	BookShipment(ctx context.Context, req delhivery.BookShipmentRequest) (*delhivery.Shipment, error)
}

// RateRequest describes one seller parcel to price.
type RateRequest struct {
	OriginPincode      string
	DestinationPincode string
	WeightGrams        int
	CODAmountPaise     int64
}

// BookingRequest describes one seller parcel to hand to the carrier.
type BookingRequest struct {
	OrderNumber        string
	SellerName         string
	OriginPincode      string
	DestinationAddress types.Address
	WeightGrams        int
	CODAmountPaise     int64
}

// Service resolves delivery rates and books shipments per seller group.
//
// PreviewRate degrades to zero on carrier failure so checkout previews stay
// responsive; the missing flag tells the caller the charge is not final.
// CommitRate retries once and then fails, because committing an order with a
// silently zeroed delivery charge would corrupt its frozen totals.
type Service interface {
	PreviewRate(ctx context.Context, req RateRequest) (paise int64, missing bool)
	CommitRate(ctx context.Context, req RateRequest) (int64, error)
	Book(ctx context.Context, req BookingRequest) (waybill string, err error)
}

type service struct {
	carrier Carrier
	log     *logger.Logger
}

func NewService(carrier Carrier, log *logger.Logger) (Service, error) {
	if carrier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping: carrier client is required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping: logger is required")
	}
	return &service{carrier: carrier, log: log}, nil
}

func (s *service) PreviewRate(ctx context.Context, req RateRequest) (int64, bool) {
	quote, err := s.carrier.GetQuote(ctx, delhivery.QuoteRequest{
		OriginPincode:      req.OriginPincode,
		DestinationPincode: req.DestinationPincode,
		WeightGrams:        req.WeightGrams,
		CODAmountPaise:     req.CODAmountPaise,
	})
	if err != nil {
		ctx = s.log.WithFields(ctx, map[string]any{
			"origin":      req.OriginPincode,
			"destination": req.DestinationPincode,
		})
		s.log.Error(ctx, "delivery rate lookup failed, previewing without charge", err)
		return 0, true
	}
	return quote.RatePaise, false
}

func (s *service) CommitRate(ctx context.Context, req RateRequest) (int64, error) {
	carrierReq := delhivery.QuoteRequest{
		OriginPincode:      req.OriginPincode,
		DestinationPincode: req.DestinationPincode,
		WeightGrams:        req.WeightGrams,
		CODAmountPaise:     req.CODAmountPaise,
	}

	quote, err := s.carrier.GetQuote(ctx, carrierReq)
	if err == nil {
		return quote.RatePaise, nil
	}
	s.log.Warn(ctx, "delivery rate lookup failed, retrying once")

	quote, err = s.carrier.GetQuote(ctx, carrierReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delivery rate unavailable")
	}
	return quote.RatePaise, nil
}

func (s *service) Book(ctx context.Context, req BookingRequest) (string, error) {
	if req.OriginPincode == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "seller has no pickup address")
	}

	shipment, err := s.carrier.BookShipment(ctx, delhivery.BookShipmentRequest{
		OrderNumber:        req.OrderNumber,
		SellerName:         req.SellerName,
		OriginPincode:      req.OriginPincode,
		DestinationPincode: req.DestinationAddress.Pincode,
		ConsigneeName:      req.DestinationAddress.Name,
		ConsigneePhone:     req.DestinationAddress.Phone,
		AddressLine:        req.DestinationAddress.Line1,
		City:               req.DestinationAddress.City,
		State:              req.DestinationAddress.State,
		WeightGrams:        req.WeightGrams,
		CODAmountPaise:     req.CODAmountPaise,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shipment booking failed")
	}
	return shipment.WaybillNumber, nil
}
