package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"

	"github.com/trovemart/trovemart-backend/internal/notifications"
	"github.com/trovemart/trovemart-backend/pkg/config"
	"github.com/trovemart/trovemart-backend/pkg/db"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/migrate"
	"github.com/trovemart/trovemart-backend/pkg/outbox/idempotency"
	"github.com/trovemart/trovemart-backend/pkg/outbox/registry"
	"github.com/trovemart/trovemart-backend/pkg/pubsub"
	"github.com/trovemart/trovemart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notifications-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "notifications-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notifications-worker",
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
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	decoders := registry.NewDomainDecoderRegistry()
	subscriptions := []struct {
		name string
		sub  *pubsubv2.Subscriber
	}{
		{name: "order-notifications", sub: pubsubClient.OrdersSubscription()},
		{name: "payment-notifications", sub: pubsubClient.PaymentsSubscription()},
		{name: "payout-notifications", sub: pubsubClient.PayoutsSubscription()},
	}
	consumers := make([]*notifications.Consumer, 0, len(subscriptions))
	for _, entry := range subscriptions {
		if entry.sub == nil {
			logg.Warn(context.Background(), entry.name+" subscription not configured, skipping")
			continue
		}
		consumer, err := notifications.NewConsumer(entry.name, notificationsService, entry.sub, decoders, manager, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create "+entry.name+" consumer", err)
			os.Exit(1)
		}
		consumers = append(consumers, consumer)
	}

	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Consumers: consumers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "notifications-worker",
	})
	logg.Info(ctx, "starting notifications worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notifications worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notifications worker shutting down gracefully")
}
