package webhooks

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
)

const deliveryConsumerName = "deliveries-worker"

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type eventStore interface {
	FindEvent(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error)
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause error) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

type deliverer interface {
	Send(ctx context.Context, url, secret string, payload []byte) error
}

type ConsumerParams struct {
	Repo         eventStore
	Sender       deliverer
	Subscription *pubsub.Subscriber
	Idempotency  idempotencyGuard
	Metrics      *metrics.DeliveryMetrics
	Logger       *logger.Logger
	MaxAttempts  int
	Now          func() time.Time
}

// Consumer processes delivery jobs from the deliveries subscription. Retries
// ride the queue: a failed attempt nacks the message and redelivery drives
// the next attempt, until the ceiling marks the row failed.
type Consumer struct {
	repo        eventStore
	sender      deliverer
	sub         *pubsub.Subscriber
	idempotency idempotencyGuard
	metrics     *metrics.DeliveryMetrics
	logg        *logger.Logger
	maxAttempts int
	now         func() time.Time
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks repo required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sender required")
	}
	if params.Subscription == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deliveries subscription required")
	}
	if params.Idempotency == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Consumer{
		repo:        params.Repo,
		sender:      params.Sender,
		sub:         params.Subscription,
		idempotency: params.Idempotency,
		metrics:     params.Metrics,
		logg:        params.Logger,
		maxAttempts: maxAttempts,
		now:         now,
	}, nil
}

// Run processes messages until the context is canceled or the subscription
// errors.
func (c *Consumer) Run(ctx context.Context) error {
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

func (c *Consumer) process(ctx context.Context, data []byte) processResult {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(ctx, "undecodable delivery message", err)
		return processResult{ack: true}
	}
	var job payloads.WebhookDeliveryRequestedEvent
	if err := json.Unmarshal(envelope.Data, &job); err != nil || job.WebhookEventID == uuid.Nil {
		c.logg.Error(ctx, "delivery message missing webhook event id", err)
		return processResult{ack: true}
	}

	envelopeID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(ctx, "delivery message missing event id", err)
		return processResult{ack: true}
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":         envelope.EventID,
		"webhook_event_id": job.WebhookEventID.String(),
	})

	already, err := c.idempotency.CheckAndMarkProcessed(logCtx, deliveryConsumerName, envelopeID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "delivery already processed")
		return processResult{ack: true}
	}

	result := c.deliver(logCtx, job.WebhookEventID)
	if result.nack {
		// clear the marker so the redelivered message is attempted again
		if delErr := c.idempotency.Delete(logCtx, deliveryConsumerName, envelopeID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency marker", delErr)
		}
	}
	return result
}

func (c *Consumer) deliver(ctx context.Context, webhookEventID uuid.UUID) processResult {
	event, err := c.repo.FindEvent(ctx, webhookEventID)
	if err != nil {
		c.logg.Error(ctx, "load webhook event", err)
		return processResult{nack: true}
	}
	if event == nil {
		c.logg.Warn(ctx, "webhook event not found")
		return processResult{ack: true}
	}
	if event.Status != enums.WebhookEventPending {
		c.logg.Info(ctx, "webhook event already settled")
		return processResult{ack: true}
	}

	subscription, err := c.repo.FindSubscriptionByID(ctx, event.SubscriptionID)
	if err != nil {
		c.logg.Error(ctx, "load subscription", err)
		return processResult{nack: true}
	}
	if subscription == nil || !subscription.Active() {
		c.logg.Info(ctx, "subscription discarded, skipping delivery")
		return processResult{ack: true}
	}

	started := c.now()
	sendErr := c.sender.Send(ctx, subscription.URL, subscription.Secret, event.Payload)
	elapsed := c.now().Sub(started)
	eventType := string(event.EventType)

	if sendErr == nil {
		if err := c.repo.MarkDelivered(ctx, event.ID, c.now().UTC()); err != nil {
			c.logg.Error(ctx, "mark delivered", err)
			return processResult{nack: true}
		}
		c.metrics.ObserveAttempt(eventType, "delivered", elapsed)
		c.logg.Info(ctx, "webhook delivered")
		return processResult{ack: true}
	}

	attempt := event.AttemptCount + 1
	failCtx := c.logg.WithFields(ctx, map[string]any{
		"attempt": attempt,
		"url":     subscription.URL,
	})

	if attempt >= c.maxAttempts {
		if err := c.repo.MarkFailed(ctx, event.ID, sendErr); err != nil {
			c.logg.Error(failCtx, "mark failed", err)
			return processResult{nack: true}
		}
		c.metrics.ObserveAttempt(eventType, "failed", elapsed)
		c.logg.Error(failCtx, "webhook delivery exhausted", sendErr)
		return processResult{ack: true}
	}

	if err := c.repo.RecordFailure(ctx, event.ID, sendErr); err != nil {
		c.logg.Error(failCtx, "record failure", err)
	}
	c.metrics.ObserveAttempt(eventType, "retry", elapsed)
	c.logg.Warn(c.logg.WithField(failCtx, "error", sendErr.Error()), "webhook delivery failed, will retry")
	return processResult{nack: true}
}
