package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trovemart/trovemart-backend/api/routes"
	"github.com/trovemart/trovemart-backend/internal/cart"
	"github.com/trovemart/trovemart-backend/internal/catalog"
	"github.com/trovemart/trovemart-backend/internal/checkout"
	"github.com/trovemart/trovemart-backend/internal/coupons"
	"github.com/trovemart/trovemart-backend/internal/notifications"
	"github.com/trovemart/trovemart-backend/internal/orders"
	"github.com/trovemart/trovemart-backend/internal/payments"
	"github.com/trovemart/trovemart-backend/internal/payouts"
	"github.com/trovemart/trovemart-backend/internal/sellers"
	"github.com/trovemart/trovemart-backend/internal/shipping"
	"github.com/trovemart/trovemart-backend/pkg/config"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/delhivery"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/metrics"
	"github.com/trovemart/trovemart-backend/pkg/migrate"
	"github.com/trovemart/trovemart-backend/pkg/outbox"
	"github.com/trovemart/trovemart-backend/pkg/razorpay"
	"github.com/trovemart/trovemart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := razorpay.NewClient(
		cfg.Razorpay.KeyID,
		cfg.Razorpay.KeySecret,
		cfg.Razorpay.WebhookSecret,
		razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
		razorpay.WithHTTPClient(&http.Client{Timeout: cfg.Razorpay.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create razorpay client", err)
		os.Exit(1)
	}

	carrier, err := delhivery.NewClient(
		cfg.Delhivery.APIKey,
		delhivery.WithBaseURL(cfg.Delhivery.BaseURL),
		delhivery.WithTimeout(cfg.Delhivery.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create delhivery client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	catalogRepo := catalog.NewRepository(gormDB)
	catalogService, err := catalog.NewService(catalogRepo)
	requireService(logg, "catalog", err)

	cartRepo := cart.NewRepository(gormDB)
	cartService, err := cart.NewService(cartRepo, catalogService)
	requireService(logg, "cart", err)

	sellersService, err := sellers.NewService(sellers.NewRepository(gormDB), cfg.Commission)
	requireService(logg, "sellers", err)

	couponsService, err := coupons.NewService(coupons.NewRepository(gormDB))
	requireService(logg, "coupons", err)

	shippingService, err := shipping.NewService(carrier, logg)
	requireService(logg, "shipping", err)

	checkoutService, err := checkout.NewService(checkout.Deps{
		DB:       dbClient,
		Carts:    cartService,
		CartRepo: cartRepo,
		Catalog:  catalogService,
		CatRepo:  catalogRepo,
		Sellers:  sellersService,
		Coupons:  couponsService,
		Shipping: shippingService,
		Outbox:   outboxService,
		Logger:   logg,
		Metrics:  checkoutMetrics,
	})
	requireService(logg, "checkout", err)

	ordersRepo := orders.NewRepository(gormDB)
	ordersService, err := orders.NewService(orders.Deps{
		DB:       dbClient,
		Repo:     ordersRepo,
		CatRepo:  catalogRepo,
		Sellers:  sellersService,
		Shipping: shippingService,
		Outbox:   outboxService,
		Logger:   logg,
	})
	requireService(logg, "orders", err)

	paymentsRepo := payments.NewRepository(gormDB)
	payoutsService, err := payouts.NewService(payouts.Deps{
		DB:       dbClient,
		Repo:     payouts.NewRepository(gormDB),
		Orders:   ordersRepo,
		Payments: paymentsRepo,
		Sellers:  sellersService,
		Gateway:  gateway,
		Locker:   redisClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	requireService(logg, "payouts", err)

	paymentsService, err := payments.NewService(payments.Deps{
		DB:      dbClient,
		Repo:    paymentsRepo,
		Orders:  ordersRepo,
		Gateway: gateway,
		Dedup:   redisClient,
		Settler: payoutsService,
		Outbox:  outboxService,
		Logger:  logg,
	})
	requireService(logg, "payments", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(gormDB), logg)
	requireService(logg, "notifications", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cartService,
			checkoutService,
			ordersService,
			paymentsService,
			payoutsService,
			notificationsService,
			webhookMetrics,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeout, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeout); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
