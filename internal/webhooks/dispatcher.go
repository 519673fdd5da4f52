// Package webhooks turns internal domain events into persisted delivery
// records and at-least-once HTTP deliveries to subscriber endpoints.
package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/metrics"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
)

// DomainEvent is an internal event offered to subscribers. The actor
// application, when set, identifies the integration that produced the event;
// deliveries back to it are suppressed.
type DomainEvent struct {
	Type               enums.WebhookEventType
	OrganizationID     uuid.UUID
	ActorApplicationID *uuid.UUID
	SubjectType        string
	SubjectID          uuid.UUID
	Data               map[string]any
}

// Envelope is the payload frozen onto each webhook_events row at creation.
// The timestamp is dispatch time, not event time, and retries always deliver
// these stored bytes.
type Envelope struct {
	Type           string         `json:"type"`
	Timestamp      string         `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	ApplicationID  string         `json:"application_id"`
	Data           map[string]any `json:"data"`
}

// PolicyFunc authorizes a subscriber for an event's subject. Returning false
// silently excludes the subscription from the fan-out.
type PolicyFunc func(ctx context.Context, subscription models.WebhookSubscription, event DomainEvent) bool

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type DispatcherParams struct {
	Repo    *Repository
	Outbox  outboxEmitter
	Policy  PolicyFunc
	Metrics *metrics.DeliveryMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Dispatcher fans a domain event out to matching subscriptions: one
// WebhookEvent row and one delivery job per surviving subscription, all
// inside the caller's transaction.
type Dispatcher struct {
	repo    *Repository
	outbox  outboxEmitter
	policy  PolicyFunc
	metrics *metrics.DeliveryMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks repo required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	policy := params.Policy
	if policy == nil {
		policy = func(context.Context, models.WebhookSubscription, DomainEvent) bool { return true }
	}
	return &Dispatcher{
		repo:    params.Repo,
		outbox:  params.Outbox,
		policy:  policy,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Dispatch creates delivery records for every matching subscription. Creation
// happens exactly once per (event, subscription) pair; delivery retries reuse
// the rows and never re-enter here.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *gorm.DB, event DomainEvent) ([]models.WebhookEvent, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if event.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}

	subscriptions, err := d.repo.ActiveSubscriptionsForOrgTx(tx, event.OrganizationID)
	if err != nil {
		return nil, err
	}

	dispatchedAt := d.now().UTC()
	var created []models.WebhookEvent
	for _, subscription := range subscriptions {
		if !subscription.SubscribedTo(event.Type) {
			continue
		}
		if suppressedEcho(subscription, event) {
			continue
		}
		if !d.policy(ctx, subscription, event) {
			continue
		}

		envelope := Envelope{
			Type:           string(event.Type),
			Timestamp:      dispatchedAt.Format(time.RFC3339),
			OrganizationID: event.OrganizationID.String(),
			ApplicationID:  subscription.ApplicationID.String(),
			Data:           event.Data,
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "freeze webhook payload")
		}

		row := models.WebhookEvent{
			ID:             uuid.New(),
			SubscriptionID: subscription.ID,
			EventType:      event.Type,
			Payload:        payload,
			SubjectType:    event.SubjectType,
			SubjectID:      event.SubjectID,
			Status:         enums.WebhookEventPending,
		}
		if err := d.repo.CreateEventTx(tx, &row); err != nil {
			return nil, err
		}

		if err := d.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWebhookDeliveryRequested,
			AggregateType: enums.AggregateWebhookEvent,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{OrganizationID: event.OrganizationID},
			Data:          payloads.WebhookDeliveryRequestedEvent{WebhookEventID: row.ID},
			Version:       1,
		}); err != nil {
			return nil, err
		}
		created = append(created, row)
	}

	d.metrics.ObserveFanout(len(created))
	fields := map[string]any{
		"event_type":   event.Type,
		"subject_type": event.SubjectType,
		"subject_id":   event.SubjectID.String(),
		"matched":      len(created),
	}
	d.logg.Info(d.logg.WithFields(ctx, fields), "webhook event dispatched")
	return created, nil
}

// suppressedEcho keeps an application from receiving its own events back,
// which matters most for DMs relayed by integrations.
func suppressedEcho(subscription models.WebhookSubscription, event DomainEvent) bool {
	if event.ActorApplicationID == nil {
		return false
	}
	return subscription.ApplicationID == *event.ActorApplicationID
}
