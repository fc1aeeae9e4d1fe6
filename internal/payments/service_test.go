package payments

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
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/razorpay"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

const paymentsSchema = `
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

type stubGateway struct {
	createCalls int
	orderID     string
	createErr   error
}

func (g *stubGateway) CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.GatewayOrder, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &razorpay.GatewayOrder{
		ID:          g.orderID,
		AmountPaise: req.AmountPaise,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
	}, nil
}

func (g *stubGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if signature != "valid" {
		return pkgerrors.New(pkgerrors.CodeSecurity, "webhook signature mismatch")
	}
	return nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *memDedup) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *memDedup) IdempotencyKey(scope, id string) string {
	return "tm:idempotency:" + scope + ":" + id
}

type stubSettler struct {
	calls []uuid.UUID
	err   error
}

func (s *stubSettler) Settle(ctx context.Context, orderID uuid.UUID) error {
	s.calls = append(s.calls, orderID)
	return s.err
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	gateway *stubGateway
	settler *stubSettler
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(paymentsSchema).Error)

	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	gateway := &stubGateway{orderID: "order_rzp_1"}
	settler := &stubSettler{}

	svc, err := NewService(Deps{
		DB:      db.NewFromConn(conn),
		Repo:    NewRepository(conn),
		Orders:  orders.NewRepository(conn),
		Gateway: gateway,
		Dedup:   &memDedup{},
		Settler: settler,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), log),
		Logger:  log,
	})
	require.NoError(t, err)

	return &fixture{
		conn:    conn,
		svc:     svc,
		gateway: gateway,
		settler: settler,
		userID:  uuid.New(),
	}
}

func (f *fixture) seedOrder(t *testing.T, method enums.PaymentMethod) (*models.Order, *models.Payment) {
	t.Helper()

	order := models.Order{
		ID:              uuid.New(),
		OrderNumber:     fmt.Sprintf("ORD-20260831-%06d", time.Now().UnixNano()%1000000),
		UserID:          f.userID,
		Status:          enums.OrderStatusProcessing,
		PaymentMethod:   method,
		Currency:        enums.CurrencyINR,
		ShippingAddress: types.Address{Pincode: "411001"},
		SubtotalPaise:   20000,
		TotalPaise:      23600,
		Timeline:        types.Timeline{}.Append("processing", "order placed", time.Now().UTC()),
	}
	require.NoError(t, f.conn.Create(&order).Error)

	payment := models.Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Method:      method,
		Status:      enums.PaymentStatusPending,
		AmountPaise: order.TotalPaise,
	}
	require.NoError(t, f.conn.Create(&payment).Error)
	return &order, &payment
}

func capturedBody(gatewayOrderID string) []byte {
	return []byte(fmt.Sprintf(`{
  "event": "payment.captured",
  "payload": {"payment": {"entity": {"id": "pay_1", "order_id": %q, "amount": 23600}}}
}`, gatewayOrderID))
}

func TestInitiate_OnlineBindsGatewayOrderOnce(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodOnline)

	result, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "order_rzp_1", result.GatewayOrderID)
	assert.EqualValues(t, 23600, result.AmountPaise)

	// Re-initiating must reuse the bound gateway order.
	again, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "order_rzp_1", again.GatewayOrderID)
	assert.Equal(t, 1, f.gateway.createCalls)
}

func TestInitiate_CODNeedsNoGateway(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodCOD)

	result, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodCOD, result.Method)
	assert.Empty(t, result.GatewayOrderID)
	assert.Zero(t, f.gateway.createCalls)
}

func TestInitiate_WrongUserSeesNotFound(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodOnline)

	_, err := f.svc.Initiate(context.Background(), order.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestHandleWebhook_BadSignatureMutatesNothing(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodOnline)
	_, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), capturedBody("order_rzp_1"), "forged", "evt_1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSecurity, pkgerrors.As(err).Code())

	var status string
	require.NoError(t, f.conn.Model(&models.Payment{}).
		Where("order_id = ?", order.ID).Pluck("status", &status).Error)
	assert.Equal(t, "pending", status)
	assert.Empty(t, f.settler.calls)
}

func TestHandleWebhook_CaptureConfirmsOrderAndSettles(t *testing.T) {
	f := newFixture(t)
	order, payment := f.seedOrder(t, enums.PaymentMethodOnline)
	_, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	err = f.svc.HandleWebhook(context.Background(), capturedBody("order_rzp_1"), "valid", "evt_1")
	require.NoError(t, err)

	var got models.Payment
	require.NoError(t, f.conn.First(&got, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusSuccess, got.Status)
	require.NotNil(t, got.GatewayPaymentID)
	assert.Equal(t, "pay_1", *got.GatewayPaymentID)
	require.NotNil(t, got.CapturedAt)

	var gotOrder models.Order
	require.NoError(t, f.conn.First(&gotOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusConfirmed, gotOrder.Status)
	require.Len(t, gotOrder.Timeline, 2)
	assert.Equal(t, "payment captured", gotOrder.Timeline[1].Note)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentCaptured).Count(&events).Error)
	assert.EqualValues(t, 1, events)

	require.Len(t, f.settler.calls, 1)
	assert.Equal(t, order.ID, f.settler.calls[0])
}

func TestHandleWebhook_CaptureAmountMismatchIsRejected(t *testing.T) {
	f := newFixture(t)
	order, payment := f.seedOrder(t, enums.PaymentMethodOnline)
	_, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	// One-paisa capture against a Rs 236 payment.
	body := []byte(`{
  "event": "payment.captured",
  "payload": {"payment": {"entity": {"id": "pay_1", "order_id": "order_rzp_1", "amount": 1}}}
}`)
	err = f.svc.HandleWebhook(context.Background(), body, "valid", "evt_1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSecurity, pkgerrors.As(err).Code())

	var got models.Payment
	require.NoError(t, f.conn.First(&got, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, got.Status)

	var gotOrder models.Order
	require.NoError(t, f.conn.First(&gotOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, gotOrder.Status)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPaymentCaptured).Count(&events).Error)
	assert.Zero(t, events)
	assert.Empty(t, f.settler.calls)
}

func TestHandleWebhook_ReplayedEventIsAcknowledgedOnce(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodOnline)
	_, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	body := capturedBody("order_rzp_1")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "valid", "evt_1"))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "valid", "evt_1"))

	assert.Len(t, f.settler.calls, 1)

	// A redelivery under a fresh event ID still cannot double-capture: the
	// pending-status guard turns it into a no-op.
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "valid", "evt_2"))
	assert.Len(t, f.settler.calls, 1)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestHandleWebhook_FailureMarksPaymentOnly(t *testing.T) {
	f := newFixture(t)
	order, payment := f.seedOrder(t, enums.PaymentMethodOnline)
	_, err := f.svc.Initiate(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	body := []byte(`{
  "event": "payment.failed",
  "payload": {"payment": {"entity": {"id": "pay_9", "order_id": "order_rzp_1", "error_description": "card declined"}}}
}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "valid", "evt_9"))

	var got models.Payment
	require.NoError(t, f.conn.First(&got, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "card declined", *got.FailureReason)

	// The order stays where it was; a failed attempt never cancels it.
	var gotOrder models.Order
	require.NoError(t, f.conn.First(&gotOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, gotOrder.Status)
	assert.Empty(t, f.settler.calls)
}

func TestHandleWebhook_UnknownEventIsIgnored(t *testing.T) {
	f := newFixture(t)

	body := []byte(`{"event": "refund.processed", "payload": {}}`)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, "valid", "evt_x"))
	assert.Empty(t, f.settler.calls)
}

func TestMarkCODCollected_SettlesOnce(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodCOD)

	payment, err := f.svc.MarkCODCollected(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, payment.Status)
	require.NotNil(t, payment.CashCollectedAt)
	require.Len(t, f.settler.calls, 1)

	_, err = f.svc.MarkCODCollected(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Len(t, f.settler.calls, 1)
}

func TestMarkCODCollected_RejectsOnlinePayments(t *testing.T) {
	f := newFixture(t)
	order, _ := f.seedOrder(t, enums.PaymentMethodOnline)

	_, err := f.svc.MarkCODCollected(context.Background(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
