package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trovemart/trovemart-backend/pkg/delhivery"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

type stubCarrier struct {
	quoteCalls int
	quoteErrs  []error
	ratePaise  int64

	bookErr error
	waybill string
	booked  []delhivery.BookShipmentRequest
}

func (s *stubCarrier) GetQuote(ctx context.Context, req delhivery.QuoteRequest) (*delhivery.Quote, error) {
	call := s.quoteCalls
	s.quoteCalls++
	if call < len(s.quoteErrs) && s.quoteErrs[call] != nil {
		return nil, s.quoteErrs[call]
	}
	return &delhivery.Quote{RatePaise: s.ratePaise}, nil
}

func (s *stubCarrier) BookShipment(ctx context.Context, req delhivery.BookShipmentRequest) (*delhivery.Shipment, error) {
	s.booked = append(s.booked, req)
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return &delhivery.Shipment{WaybillNumber: s.waybill, Status: "booked"}, nil
}

func newShippingService(t *testing.T, carrier Carrier) Service {
	t.Helper()
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	svc, err := NewService(carrier, log)
	require.NoError(t, err)
	return svc
}

func TestPreviewRate_DegradesToZeroOnFailure(t *testing.T) {
	t.Parallel()

	carrier := &stubCarrier{quoteErrs: []error{errors.New("timeout")}}
	svc := newShippingService(t, carrier)

	paise, missing := svc.PreviewRate(context.Background(), RateRequest{
		OriginPincode:      "110001",
		DestinationPincode: "400001",
		WeightGrams:        400,
	})
	assert.Zero(t, paise)
	assert.True(t, missing)
}

func TestPreviewRate_ReturnsCarrierRate(t *testing.T) {
	t.Parallel()

	carrier := &stubCarrier{ratePaise: 4000}
	svc := newShippingService(t, carrier)

	paise, missing := svc.PreviewRate(context.Background(), RateRequest{
		OriginPincode:      "110001",
		DestinationPincode: "400001",
	})
	assert.Equal(t, int64(4000), paise)
	assert.False(t, missing)
}

func TestCommitRate_RetriesOnceThenFails(t *testing.T) {
	t.Parallel()

	carrier := &stubCarrier{quoteErrs: []error{errors.New("timeout"), errors.New("timeout")}}
	svc := newShippingService(t, carrier)

	_, err := svc.CommitRate(context.Background(), RateRequest{
		OriginPincode:      "110001",
		DestinationPincode: "400001",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Equal(t, 2, carrier.quoteCalls)
}

func TestCommitRate_SecondAttemptSucceeds(t *testing.T) {
	t.Parallel()

	carrier := &stubCarrier{quoteErrs: []error{errors.New("timeout")}, ratePaise: 4000}
	svc := newShippingService(t, carrier)

	paise, err := svc.CommitRate(context.Background(), RateRequest{
		OriginPincode:      "110001",
		DestinationPincode: "400001",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), paise)
	assert.Equal(t, 2, carrier.quoteCalls)
}

func TestBook_RequiresPickupPincode(t *testing.T) {
	t.Parallel()

	svc := newShippingService(t, &stubCarrier{})
	_, err := svc.Book(context.Background(), BookingRequest{OrderNumber: "ORD-20250131-000001"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestBook_ReturnsWaybill(t *testing.T) {
	t.Parallel()

	carrier := &stubCarrier{waybill: "WB123456"}
	svc := newShippingService(t, carrier)

	waybill, err := svc.Book(context.Background(), BookingRequest{
		OrderNumber:   "ORD-20250131-000001",
		SellerName:    "Acme Traders",
		OriginPincode: "110001",
		DestinationAddress: types.Address{
			Name:    "Asha Rao",
			Phone:   "9800000000",
			Line1:   "12 MG Road",
			City:    "Mumbai",
			State:   "MH",
			Pincode: "400001",
		},
		WeightGrams: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, "WB123456", waybill)
	require.Len(t, carrier.booked, 1)
	assert.Equal(t, "400001", carrier.booked[0].DestinationPincode)
}
