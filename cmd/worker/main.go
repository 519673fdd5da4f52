package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gatherly-app/gatherly-backend/internal/calls"
	"github.com/gatherly-app/gatherly-backend/internal/consumers"
	"github.com/gatherly-app/gatherly-backend/internal/linearsync"
	"github.com/gatherly-app/gatherly-backend/internal/slacksync"
	"github.com/gatherly-app/gatherly-backend/internal/webhooks"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
	"github.com/gatherly-app/gatherly-backend/pkg/migrate"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/idempotency"
	"github.com/gatherly-app/gatherly-backend/pkg/pubsub"
	"github.com/gatherly-app/gatherly-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	deliveryMetrics := metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	webhooksRepo := webhooks.NewRepository(dbClient.DB())

	dispatcher, err := webhooks.NewDispatcher(webhooks.DispatcherParams{
		Repo:    webhooksRepo,
		Outbox:  outboxService,
		Metrics: deliveryMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	callsService, err := calls.NewService(calls.ServiceParams{
		Repo:       calls.NewRepository(dbClient.DB()),
		Dispatcher: dispatcher,
		TxRunner:   dbClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create calls service", err)
		os.Exit(1)
	}

	slackService, err := slacksync.NewService(slacksync.ServiceParams{
		Repo:   slacksync.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create slacksync service", err)
		os.Exit(1)
	}

	linearService, err := linearsync.NewService(linearsync.ServiceParams{
		Repo:   linearsync.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create linearsync service", err)
		os.Exit(1)
	}

	callsConsumer, err := consumers.NewInboundConsumer(consumers.InboundConsumerParams{
		Name:         "calls-worker",
		Provider:     enums.ProviderHMS,
		Handler:      callsService.HandleRaw,
		Subscription: pubsubClient.CallsSubscription(),
		Idempotency:  guard,
		Metrics:      deliveryMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create calls consumer", err)
		os.Exit(1)
	}

	slackConsumer, err := consumers.NewInboundConsumer(consumers.InboundConsumerParams{
		Name:         "slack-worker",
		Provider:     enums.ProviderSlack,
		Handler:      slackService.HandleRaw,
		Subscription: pubsubClient.SlackSubscription(),
		Idempotency:  guard,
		Metrics:      deliveryMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create slack consumer", err)
		os.Exit(1)
	}

	linearConsumer, err := consumers.NewInboundConsumer(consumers.InboundConsumerParams{
		Name:         "linear-worker",
		Provider:     enums.ProviderLinear,
		Handler:      linearService.HandleRaw,
		Subscription: pubsubClient.LinearSubscription(),
		Idempotency:  guard,
		Metrics:      deliveryMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create linear consumer", err)
		os.Exit(1)
	}

	deliveryConsumer, err := webhooks.NewConsumer(webhooks.ConsumerParams{
		Repo:         webhooksRepo,
		Sender:       webhooks.NewSender(cfg.Webhooks.DeliveryTimeout),
		Subscription: pubsubClient.DeliveriesSubscription(),
		Idempotency:  guard,
		Metrics:      deliveryMetrics,
		Logger:       logg,
		MaxAttempts:  cfg.Webhooks.MaxDeliveryAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               dbClient,
		Redis:            redisClient,
		PubSub:           pubsubClient,
		CallsConsumer:    callsConsumer,
		SlackConsumer:    slackConsumer,
		LinearConsumer:   linearConsumer,
		DeliveryConsumer: deliveryConsumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}
