package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly-app/gatherly-backend/internal/consumers"
	"github.com/gatherly-app/gatherly-backend/internal/webhooks"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/pubsub"
	"github.com/gatherly-app/gatherly-backend/pkg/redis"
)

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               *db.Client
	Redis            *redis.Client
	PubSub           *pubsub.Client
	CallsConsumer    *consumers.InboundConsumer
	SlackConsumer    *consumers.InboundConsumer
	LinearConsumer   *consumers.InboundConsumer
	DeliveryConsumer *webhooks.Consumer
}

// Service runs the background consumers: one per inbound provider plus the
// outbound delivery worker.
type Service struct {
	cfg              *config.Config
	logg             *logger.Logger
	db               *db.Client
	redis            *redis.Client
	pubsub           *pubsub.Client
	callsConsumer    *consumers.InboundConsumer
	slackConsumer    *consumers.InboundConsumer
	linearConsumer   *consumers.InboundConsumer
	deliveryConsumer *webhooks.Consumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.CallsConsumer == nil {
		return nil, errors.New("calls consumer is required")
	}
	if params.SlackConsumer == nil {
		return nil, errors.New("slack consumer is required")
	}
	if params.LinearConsumer == nil {
		return nil, errors.New("linear consumer is required")
	}
	if params.DeliveryConsumer == nil {
		return nil, errors.New("delivery consumer is required")
	}

	return &Service{
		cfg:              params.Config,
		logg:             params.Logger,
		db:               params.DB,
		redis:            params.Redis,
		pubsub:           params.PubSub,
		callsConsumer:    params.CallsConsumer,
		slackConsumer:    params.SlackConsumer,
		linearConsumer:   params.LinearConsumer,
		deliveryConsumer: params.DeliveryConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run blocks until a consumer fails or the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 4)
	go func() { errCh <- s.callsConsumer.Run(ctx) }()
	go func() { errCh <- s.slackConsumer.Run(ctx) }()
	go func() { errCh <- s.linearConsumer.Run(ctx) }()
	go func() { errCh <- s.deliveryConsumer.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			return err
		}
	}
}
