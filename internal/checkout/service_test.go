package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trovemart/trovemart-backend/internal/cart"
	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/internal/coupons"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	"github.com/trovemart/trovemart-backend/internal/shipping"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/db/models"
	"github.com/trovemart/trovemart-backend/pkg/delhivery"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	pkgerrors "github.com/trovemart/trovemart-backend/pkg/errors"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/types"
)

const checkoutSchema = `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  brand TEXT,
  tags TEXT NOT NULL DEFAULT '{}',
  price_paise INTEGER NOT NULL,
  final_price_paise INTEGER,
  compare_at_paise INTEGER,
  deal_price_paise INTEGER,
  deal_starts_at DATETIME,
  deal_ends_at DATETIME,
  gst_rate_percent REAL NOT NULL DEFAULT 18,
  commission_rate_percent REAL,
  stock INTEGER NOT NULL DEFAULT 0,
  weight_grams INTEGER NOT NULL DEFAULT 500,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  label TEXT NOT NULL,
  price_paise INTEGER NOT NULL,
  final_price_paise INTEGER,
  commission_rate_percent REAL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  checked_out_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL,
  unit_price_paise INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  scope TEXT NOT NULL DEFAULT 'cart',
  scope_values TEXT NOT NULL DEFAULT '{}',
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  max_discount_paise INTEGER NOT NULL DEFAULT 0,
  min_cart_paise INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER NOT NULL DEFAULT 0,
  used_count INTEGER NOT NULL DEFAULT 0,
  per_user_limit INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  expires_at DATETIME,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS offer_redemptions (
  id TEXT PRIMARY KEY,
  offer_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT,
  discount_paise INTEGER NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS counters (
  name TEXT PRIMARY KEY,
  value INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);
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

type stubCarrier struct {
	ratePaise  int64
	quoteErrs  int
	quoteCalls int
}

func (s *stubCarrier) GetQuote(ctx context.Context, req delhivery.QuoteRequest) (*delhivery.Quote, error) {
	s.quoteCalls++
	if s.quoteCalls <= s.quoteErrs {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier timeout")
	}
	return &delhivery.Quote{RatePaise: s.ratePaise}, nil
}

func (s *stubCarrier) BookShipment(ctx context.Context, req delhivery.BookShipmentRequest) (*delhivery.Shipment, error) {
	return &delhivery.Shipment{WaybillNumber: "WB1", Status: "booked"}, nil
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	userID  uuid.UUID
	seller  sellers.Profile
	carrier *stubCarrier
	cartSvc cart.Service
}

func newFixture(t *testing.T, carrier *stubCarrier) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(checkoutSchema).Error)

	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
	client := db.NewFromConn(conn)

	sellerID := uuid.New()
	profile := sellers.Profile{
		ID:                    sellerID,
		Name:                  "Acme Traders",
		PickupAddress:         &types.Address{Pincode: "110001"},
		CommissionRatePercent: 10,
		Active:                true,
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, catalogSvc)
	require.NoError(t, err)

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn))
	require.NoError(t, err)

	shippingSvc, err := shipping.NewService(carrier, log)
	require.NoError(t, err)

	outboxSvc := outbox.NewService(outbox.NewRepository(conn), log)

	svc, err := NewService(Deps{
		DB:       client,
		Carts:    cartSvc,
		CartRepo: cartRepo,
		Catalog:  catalogSvc,
		CatRepo:  catalogRepo,
		Sellers:  &stubSellers{profiles: map[uuid.UUID]sellers.Profile{sellerID: profile}},
		Coupons:  couponSvc,
		Shipping: shippingSvc,
		Outbox:   outboxSvc,
		Logger:   log,
	})
	require.NoError(t, err)

	return &fixture{
		conn:    conn,
		svc:     svc,
		userID:  uuid.New(),
		seller:  profile,
		carrier: carrier,
		cartSvc: cartSvc,
	}
}

func (f *fixture) seedProduct(t *testing.T, pricePaise int64, stock int) models.Product {
	t.Helper()

	product := models.Product{
		ID:             uuid.New(),
		SellerID:       f.seller.ID,
		SKU:            "SKU-A",
		Name:           "Product A",
		Category:       "kitchen",
		PricePaise:     pricePaise,
		GSTRatePercent: 18,
		Stock:          stock,
		WeightGrams:    200,
		IsActive:       true,
	}
	require.NoError(t, f.conn.Create(&product).Error)
	return product
}

func (f *fixture) seedCart(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()

	activeCart := models.Cart{ID: uuid.New(), UserID: f.userID}
	require.NoError(t, f.conn.Create(&activeCart).Error)
	require.NoError(t, f.conn.Create(&models.CartItem{
		ID:        uuid.New(),
		CartID:    activeCart.ID,
		ProductID: productID,
		Quantity:  qty,
	}).Error)
}

func shipTo() types.Address {
	return types.Address{
		Name:    "Asha Rao",
		Phone:   "9800000000",
		Email:   "asha@example.com",
		Line1:   "12 MG Road",
		City:    "Mumbai",
		State:   "MH",
		Pincode: "400001",
		Country: "IN",
	}
}

func TestQuote_SingleSellerTotals(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	summary, err := f.svc.Quote(context.Background(), QuoteRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)

	require.Len(t, summary.Sellers, 1)
	assert.Equal(t, int64(20000), summary.SubtotalPaise)
	assert.Equal(t, int64(3600), summary.GSTPaise)
	assert.Equal(t, int64(4000), summary.DeliveryFeePaise)
	assert.Equal(t, int64(27600), summary.TotalPaise)
	assert.False(t, summary.DeliveryFeeMissing)
}

func TestQuote_IsIdempotent(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	req := QuoteRequest{UserID: f.userID, ShippingAddress: shipTo(), PaymentMethod: enums.PaymentMethodOnline}
	first, err := f.svc.Quote(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestQuote_CouponDiscountsTotal(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	offer := models.Offer{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Description:   "Ten percent off",
		Scope:         enums.OfferScopeCart,
		DiscountType:  enums.OfferDiscountPercentage,
		DiscountValue: 10,
		MinCartPaise:  15000,
		IsActive:      true,
	}
	require.NoError(t, f.conn.Create(&offer).Error)

	summary, err := f.svc.Quote(context.Background(), QuoteRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		CouponCode:      "SAVE10",
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2000), summary.DiscountPaise)
	assert.Equal(t, int64(25600), summary.TotalPaise)
	require.NotNil(t, summary.Coupon)
	assert.Equal(t, "SAVE10", summary.Coupon.Code)
}

func TestQuote_DegradesWhenCarrierDown(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000, quoteErrs: 100})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	summary, err := f.svc.Quote(context.Background(), QuoteRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)
	assert.Zero(t, summary.DeliveryFeePaise)
	assert.True(t, summary.DeliveryFeeMissing)
	assert.Equal(t, int64(23600), summary.TotalPaise)
}

func TestExecute_CommitsOrderAtomically(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	order, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{8}-000001$`, order.OrderNumber)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.Equal(t, int64(27600), order.TotalPaise)
	assert.Equal(t, order.TotalPaise, order.SubtotalPaise+order.GSTPaise+order.DeliveryFeePaise-order.DiscountPaise)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, int64(20000), item.LineTotalPaise)
	assert.Equal(t, int64(2000), item.CommissionPaise)
	assert.Equal(t, int64(18000), item.SellerDuePaise)

	require.Len(t, order.Invoices, 1)
	assert.Equal(t, order.OrderNumber+"-A", order.Invoices[0].InvoiceNumber)

	require.NotNil(t, order.Payment)
	assert.Equal(t, enums.PaymentStatusPending, order.Payment.Status)
	assert.Equal(t, order.TotalPaise, order.Payment.AmountPaise)

	var stock int
	require.NoError(t, f.conn.Raw("SELECT stock FROM products WHERE id = ?", product.ID).Scan(&stock).Error)
	assert.Equal(t, 3, stock)

	var openCarts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).
		Where("user_id = ? AND checked_out_at IS NULL", f.userID).
		Count(&openCarts).Error)
	assert.Zero(t, openCarts)

	var events int64
	require.NoError(t, f.conn.Table("outbox_events").
		Where("event_type = ? AND aggregate_id = ?", enums.EventOrderCreated, order.ID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestExecute_ChargesFinalPriceNotListPrice(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	final := int64(8000)
	require.NoError(t, f.conn.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("final_price_paise", final).Error)
	f.seedCart(t, product.ID, 2)

	order, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(16000), order.SubtotalPaise)
	assert.Equal(t, int64(2880), order.GSTPaise)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, int64(10000), item.UnitPricePaise)
	assert.Equal(t, int64(8000), item.FinalPricePaise)
	assert.Equal(t, int64(16000), item.LineTotalPaise)
	// Commission and the seller's due come off the charged price.
	assert.Equal(t, int64(1600), item.CommissionPaise)
	assert.Equal(t, int64(14400), item.SellerDuePaise)
	assert.Equal(t, 200, item.WeightGrams)
}

func TestExecute_PreviewAndCommitTotalsMatch(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	preview, err := f.svc.Quote(context.Background(), QuoteRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)

	order, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodOnline,
	})
	require.NoError(t, err)

	assert.Equal(t, preview.SubtotalPaise, order.SubtotalPaise)
	assert.Equal(t, preview.GSTPaise, order.GSTPaise)
	assert.Equal(t, preview.DeliveryFeePaise, order.DeliveryFeePaise)
	assert.Equal(t, preview.TotalPaise, order.TotalPaise)
}

func TestExecute_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 1)
	f.seedCart(t, product.ID, 2)

	_, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	var stock int
	require.NoError(t, f.conn.Raw("SELECT stock FROM products WHERE id = ?", product.ID).Scan(&stock).Error)
	assert.Equal(t, 1, stock)

	var openCarts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).
		Where("user_id = ? AND checked_out_at IS NULL", f.userID).
		Count(&openCarts).Error)
	assert.Equal(t, int64(1), openCarts)
}

func TestExecute_CarrierFailureAbortsCommit(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000, quoteErrs: 100})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	_, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	// Exactly one retry.
	assert.Equal(t, 2, f.carrier.quoteCalls)

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestExecute_CouponRedeemedOnce(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})
	product := f.seedProduct(t, 10000, 5)
	f.seedCart(t, product.ID, 2)

	offer := models.Offer{
		ID:            uuid.New(),
		Code:          "SAVE10",
		Scope:         enums.OfferScopeCart,
		DiscountType:  enums.OfferDiscountPercentage,
		DiscountValue: 10,
		UsageLimit:    1,
		IsActive:      true,
	}
	require.NoError(t, f.conn.Create(&offer).Error)

	order, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		CouponCode:      "SAVE10",
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), order.DiscountPaise)
	require.NotNil(t, order.CouponSnapshot)
	assert.Equal(t, "SAVE10", order.CouponSnapshot.Code)

	var usedCount int
	require.NoError(t, f.conn.Raw("SELECT used_count FROM offers WHERE id = ?", offer.ID).Scan(&usedCount).Error)
	assert.Equal(t, 1, usedCount)

	var ledger int64
	require.NoError(t, f.conn.Model(&models.OfferRedemption{}).
		Where("offer_id = ? AND user_id = ?", offer.ID, f.userID).
		Count(&ledger).Error)
	assert.Equal(t, int64(1), ledger)
}

func TestExecute_EmptyCart(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})

	_, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: shipTo(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestExecute_RejectsIncompleteAddress(t *testing.T) {
	f := newFixture(t, &stubCarrier{ratePaise: 4000})

	address := shipTo()
	address.Pincode = ""
	_, err := f.svc.Execute(context.Background(), CommitRequest{
		UserID:          f.userID,
		ShippingAddress: address,
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
	details, ok := coded.Details().(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details["missing_fields"], "pincode")
}
