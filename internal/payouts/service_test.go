package payouts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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
	"github.com/trovemart/trovemart-backend/pkg/razorpay"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

const payoutsSchema = `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'processing',
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  refund_status TEXT NOT NULL DEFAULT 'none',
  currency TEXT NOT NULL DEFAULT 'INR',
  shipping_address TEXT NOT NULL,
  subtotal_paise INTEGER NOT NULL,
  discount_paise INTEGER NOT NULL DEFAULT 0,
  gst_paise INTEGER NOT NULL DEFAULT 0,
  delivery_fee_paise INTEGER NOT NULL DEFAULT 0,
  total_paise INTEGER NOT NULL,
  coupon_snapshot TEXT,
  delivery_fee_missing BOOLEAN NOT NULL DEFAULT FALSE,
  timeline TEXT,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_paise INTEGER NOT NULL,
  final_price_paise INTEGER NOT NULL DEFAULT 0,
  line_total_paise INTEGER NOT NULL,
  weight_grams INTEGER NOT NULL DEFAULT 0,
  gst_rate_percent REAL NOT NULL,
  gst_paise INTEGER NOT NULL DEFAULT 0,
  commission_paise INTEGER NOT NULL DEFAULT 0,
  seller_due_paise INTEGER NOT NULL DEFAULT 0,
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  waybill_number TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS invoices (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  invoice_number TEXT NOT NULL UNIQUE,
  subtotal_paise INTEGER NOT NULL,
  gst_paise INTEGER NOT NULL DEFAULT 0,
  total_paise INTEGER NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  amount_paise INTEGER NOT NULL,
  gateway_order_id TEXT,
  gateway_payment_id TEXT,
  failure_reason TEXT,
  captured_at DATETIME,
  cash_collected_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS payout_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  status TEXT NOT NULL,
  gross_paise INTEGER NOT NULL,
  commission_paise INTEGER NOT NULL,
  net_paise INTEGER NOT NULL,
  gateway_transfer_id TEXT,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

type stubSellers struct {
	profiles map[uuid.UUID]sellers.Profile
}

func (s *stubSellers) Get(ctx context.Context, id uuid.UUID) (*sellers.Profile, error) {
	profile, ok := s.profiles[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return &profile, nil
}

func (s *stubSellers) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]sellers.Profile, error) {
	out := make(map[uuid.UUID]sellers.Profile, len(ids))
	for _, id := range ids {
		profile, ok := s.profiles[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller referenced by product does not exist")
		}
		out[id] = profile
	}
	return out, nil
}

type stubTransferrer struct {
	calls     []razorpay.TransferRequest
	failFirst bool
	onCall    func()
}

func (s *stubTransferrer) CreateTransfer(ctx context.Context, req razorpay.TransferRequest) (*razorpay.Transfer, error) {
	if s.onCall != nil {
		s.onCall()
	}
	s.calls = append(s.calls, req)
	if s.failFirst && len(s.calls) == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transfer declined")
	}
	return &razorpay.Transfer{
		ID:          fmt.Sprintf("trf_%d", len(s.calls)),
		AccountID:   req.AccountID,
		AmountPaise: req.AmountPaise,
		Status:      "processed",
	}, nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) IdempotencyKey(scope, id string) string {
	return "tm:idempotency:" + scope + ":" + id
}

func (l *memLocker) Del(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		delete(l.held, key)
	}
	return nil
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	gateway *stubTransferrer
	sellers *stubSellers
	locker  *memLocker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(payoutsSchema).Error)

	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	gateway := &stubTransferrer{}
	sell := &stubSellers{profiles: map[uuid.UUID]sellers.Profile{}}
	locker := &memLocker{}

	svc, err := NewService(Deps{
		DB:       db.NewFromConn(conn),
		Repo:     NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Payments: payments.NewRepository(conn),
		Sellers:  sell,
		Gateway:  gateway,
		Locker:   locker,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), log),
		Logger:   log,
	})
	require.NoError(t, err)

	return &fixture{conn: conn, svc: svc, gateway: gateway, sellers: sell, locker: locker}
}

func (f *fixture) addSeller(t *testing.T, accountID string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	profile := sellers.Profile{
		ID:                    id,
		Name:                  "Seller " + accountID,
		CommissionRatePercent: 10,
		Active:                true,
	}
	if accountID != "" {
		profile.PayoutAccountID = &accountID
	}
	f.sellers.profiles[id] = profile
	return id
}

func (f *fixture) seedPaidOrder(t *testing.T, payStatus enums.PaymentStatus, sellerIDs ...uuid.UUID) (*models.Order, []uuid.UUID) {
	t.Helper()

	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     fmt.Sprintf("ORD-20260831-%06d", time.Now().UnixNano()%1000000),
		UserID:          uuid.New(),
		Status:          enums.OrderStatusConfirmed,
		PaymentMethod:   enums.PaymentMethodOnline,
		Currency:        enums.CurrencyINR,
		ShippingAddress: types.Address{Pincode: "411001"},
		SubtotalPaise:   int64(len(sellerIDs)) * 10000,
		TotalPaise:      int64(len(sellerIDs)) * 11800,
	}
	require.NoError(t, f.conn.Create(&order).Error)

	itemIDs := make([]uuid.UUID, 0, len(sellerIDs))
	for i, sellerID := range sellerIDs {
		item := models.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			SellerID:        sellerID,
			ProductID:       uuid.New(),
			SKU:             fmt.Sprintf("SKU-%d", i),
			Name:            fmt.Sprintf("Product %d", i),
			Quantity:        2,
			UnitPricePaise:  5000,
			LineTotalPaise:  10000,
			GSTRatePercent:  18,
			GSTPaise:        1800,
			CommissionPaise: 1000,
			SellerDuePaise:  9000,
		}
		require.NoError(t, f.conn.Create(&item).Error)
		itemIDs = append(itemIDs, item.ID)
	}

	require.NoError(t, f.conn.Create(&models.Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Method:      enums.PaymentMethodOnline,
		Status:      payStatus,
		AmountPaise: order.TotalPaise,
	}).Error)

	return &order, itemIDs
}

func TestSettle_TransfersLineTotalPerItem(t *testing.T) {
	f := newFixture(t)
	sellerA := f.addSeller(t, "acc_A")
	sellerB := f.addSeller(t, "acc_B")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, sellerA, sellerB)

	require.NoError(t, f.svc.Settle(context.Background(), order.ID))

	require.Len(t, f.gateway.calls, 2)
	for _, call := range f.gateway.calls {
		assert.EqualValues(t, 10000, call.AmountPaise)
	}

	logs, err := f.svc.History(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.Equal(t, enums.PayoutStatusSuccess, log.Status)
		assert.EqualValues(t, 10000, log.GrossPaise)
		assert.EqualValues(t, 1000, log.CommissionPaise)
		assert.EqualValues(t, 9000, log.NetPaise)
		require.NotNil(t, log.GatewayTransferID)
	}

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPayoutSettled).Count(&events).Error)
	assert.EqualValues(t, 2, events)
}

func TestSettle_RefusesUncapturedPayment(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusPending, seller)

	err := f.svc.Settle(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Empty(t, f.gateway.calls)
}

func TestSettle_SecondRunMakesNoProviderCalls(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, seller)

	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	require.Len(t, f.gateway.calls, 1)

	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	assert.Len(t, f.gateway.calls, 1)

	logs, err := f.svc.History(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSettle_NotOnboardedSellerDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	onboarded := f.addSeller(t, "acc_A")
	missing := f.addSeller(t, "")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, missing, onboarded)

	err := f.svc.Settle(context.Background(), order.ID)
	require.Error(t, err)

	// The onboarded seller's item still settled.
	require.Len(t, f.gateway.calls, 1)

	logs, listErr := f.svc.History(context.Background(), order.ID)
	require.NoError(t, listErr)
	require.Len(t, logs, 2)

	byStatus := map[enums.PayoutStatus]models.PayoutLog{}
	for _, log := range logs {
		byStatus[log.Status] = log
	}
	failed, ok := byStatus[enums.PayoutStatusFailed]
	require.True(t, ok)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "seller not onboarded", *failed.FailureReason)
	assert.Nil(t, failed.GatewayTransferID)

	_, ok = byStatus[enums.PayoutStatusSuccess]
	assert.True(t, ok)
}

func TestSettle_FailedTransferIsRetriable(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, seller)
	f.gateway.failFirst = true

	err := f.svc.Settle(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	// The retry issues a fresh transfer and appends a second audit row.
	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	require.Len(t, f.gateway.calls, 2)

	logs, listErr := f.svc.History(context.Background(), order.ID)
	require.NoError(t, listErr)
	require.Len(t, logs, 2)
	assert.Equal(t, enums.PayoutStatusFailed, logs[0].Status)
	assert.Equal(t, enums.PayoutStatusSuccess, logs[1].Status)
}

func TestSettle_AttemptRecordedBeforeProviderCall(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, seller)

	// Snapshot the audit trail from inside the provider call: the attempt
	// must already be on disk as pending.
	var statusAtCall []string
	f.gateway.onCall = func() {
		require.NoError(t, f.conn.Model(&models.PayoutLog{}).
			Where("order_id = ?", order.ID).Pluck("status", &statusAtCall).Error)
	}

	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	require.Len(t, statusAtCall, 1)
	assert.Equal(t, string(enums.PayoutStatusPending), statusAtCall[0])

	logs, err := f.svc.History(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.PayoutStatusSuccess, logs[0].Status)
	require.NotNil(t, logs[0].GatewayTransferID)
}

func TestSettle_PendingRowBlocksRetransfer(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, itemIDs := f.seedPaidOrder(t, enums.PaymentStatusSuccess, seller)

	// A crashed run left a pending attempt: nobody knows whether the
	// provider moved the money, so no new transfer may be issued.
	require.NoError(t, f.conn.Create(&models.PayoutLog{
		ID:          uuid.New(),
		OrderID:     order.ID,
		OrderItemID: itemIDs[0],
		SellerID:    seller,
		Status:      enums.PayoutStatusPending,
		GrossPaise:  10000,
		NetPaise:    9000,
	}).Error)

	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	assert.Empty(t, f.gateway.calls)

	logs, err := f.svc.History(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.PayoutStatusPending, logs[0].Status)
}

func TestSettle_ConcurrentRunYieldsToLockHolder(t *testing.T) {
	f := newFixture(t)
	seller := f.addSeller(t, "acc_A")
	order, _ := f.seedPaidOrder(t, enums.PaymentStatusSuccess, seller)

	key := f.locker.IdempotencyKey("payout:order", order.ID.String())
	held, err := f.locker.SetNX(context.Background(), key, "1", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	// Another replica holds the lock: this run backs off without touching
	// the provider.
	require.NoError(t, f.svc.Settle(context.Background(), order.ID))
	assert.Empty(t, f.gateway.calls)
}
