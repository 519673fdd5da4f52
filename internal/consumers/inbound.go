// Package consumers hosts the Pub/Sub consumer shared by the inbound provider
// workers. Each worker binds its provider and handler; the consumer owns
// decode, idempotency and ack/nack policy.
package consumers

import (
	"context"
	"encoding/json"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
)

// HandlerFunc applies one raw provider payload. It must be safe to run more
// than once; redelivery and duplicates are expected.
type HandlerFunc func(ctx context.Context, rawPayload string) error

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type InboundConsumerParams struct {
	Name         string
	Provider     enums.Provider
	Handler      HandlerFunc
	Subscription *pubsub.Subscriber
	Idempotency  idempotencyGuard
	Metrics      *metrics.DeliveryMetrics
	Logger       *logger.Logger
}

// InboundConsumer drains one provider's events from the shared events topic.
// All three provider subscriptions see every event; non-matching providers
// are acked without work.
type InboundConsumer struct {
	name        string
	provider    enums.Provider
	handler     HandlerFunc
	sub         *pubsub.Subscriber
	idempotency idempotencyGuard
	metrics     *metrics.DeliveryMetrics
	logg        *logger.Logger
}

func NewInboundConsumer(params InboundConsumerParams) (*InboundConsumer, error) {
	if params.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "consumer name required")
	}
	if params.Provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider required")
	}
	if params.Handler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "handler required")
	}
	if params.Subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription required")
	}
	if params.Idempotency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &InboundConsumer{
		name:        params.Name,
		provider:    params.Provider,
		handler:     params.Handler,
		sub:         params.Subscription,
		idempotency: params.Idempotency,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *InboundConsumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *InboundConsumer) process(ctx context.Context, data []byte) processResult {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(ctx, "undecodable inbound message", err)
		return processResult{ack: true}
	}
	var payload payloads.InboundEventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(ctx, "undecodable inbound payload", err)
		return processResult{ack: true}
	}

	logCtx := c.logg.WithProvider(ctx, payload.Provider.String())
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":           envelope.EventID,
		"provider_event":     payload.EventType,
		"payload_created_at": payload.ReceivedAt,
	})

	if payload.Provider != c.provider {
		return processResult{ack: true}
	}

	envelopeID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "inbound message missing event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(logCtx, c.name, envelopeID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "inbound event already processed")
		c.metrics.IncInbound(c.provider.String(), "skipped")
		return processResult{ack: true}
	}

	if err := c.handler(logCtx, payload.RawPayload); err != nil {
		c.metrics.IncInbound(c.provider.String(), "error")
		c.logg.Error(logCtx, "inbound handler failed", err)
		if delErr := c.idempotency.Delete(logCtx, c.name, envelopeID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency marker", delErr)
		}
		return processResult{nack: true}
	}

	c.metrics.IncInbound(c.provider.String(), "processed")
	c.logg.Info(logCtx, "inbound event processed")
	return processResult{ack: true}
}
