// Package ingest accepts verified provider payloads from the webhook
// controllers and queues them for background processing. Acceptance and
// processing are decoupled on purpose: the controller acks as soon as the
// outbox row commits, and the worker owns parsing and side effects.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	DB     txRunner
	Outbox emitter
	Logger *logger.Logger
}

type Service struct {
	db     txRunner
	outbox emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{db: params.DB, outbox: params.Outbox, logg: params.Logger}, nil
}

// Enqueue records one raw provider payload in the outbox. The body is stored
// verbatim; the background handler parses what the provider actually sent.
func (s *Service) Enqueue(ctx context.Context, provider enums.Provider, eventType string, raw []byte, receivedAt time.Time) error {
	outboxType, err := eventTypeFor(provider)
	if err != nil {
		return err
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outboxType,
			AggregateType: enums.AggregateInboundEvent,
			AggregateID:   uuid.New(),
			Data: payloads.InboundEventPayload{
				Provider:   provider,
				EventType:  eventType,
				RawPayload: string(raw),
				ReceivedAt: receivedAt,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue inbound event")
	}

	logCtx := s.logg.WithProvider(ctx, provider.String())
	logCtx = s.logg.WithField(logCtx, "provider_event", eventType)
	s.logg.Info(logCtx, "inbound event queued")
	return nil
}

func eventTypeFor(provider enums.Provider) (enums.OutboxEventType, error) {
	switch provider {
	case enums.ProviderHMS:
		return enums.EventHMSEventReceived, nil
	case enums.ProviderSlack:
		return enums.EventSlackEventReceived, nil
	case enums.ProviderLinear:
		return enums.EventLinearEventReceived, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeInternal, "unknown provider "+provider.String())
	}
}
