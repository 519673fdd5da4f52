package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
	"github.com/rs/zerolog"
)

type nopTxRunner struct{}

func (nopTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type recordingEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (e *recordingEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func newTestService(t *testing.T, emit *recordingEmitter) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     nopTxRunner{},
		Outbox: emit,
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	require.NoError(t, err)
	return svc
}

func TestEnqueueRoutesByProvider(t *testing.T) {
	emit := &recordingEmitter{}
	svc := newTestService(t, emit)

	receivedAt := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	raw := []byte(`{"type":"session.open.success"}`)
	require.NoError(t, svc.Enqueue(context.Background(), enums.ProviderHMS, "session.open.success", raw, receivedAt))

	require.Len(t, emit.events, 1)
	event := emit.events[0]
	assert.Equal(t, enums.EventHMSEventReceived, event.EventType)
	assert.Equal(t, enums.AggregateInboundEvent, event.AggregateType)

	payload, ok := event.Data.(payloads.InboundEventPayload)
	require.True(t, ok)
	assert.Equal(t, enums.ProviderHMS, payload.Provider)
	assert.Equal(t, "session.open.success", payload.EventType)
	assert.Equal(t, string(raw), payload.RawPayload)
	assert.Equal(t, receivedAt, payload.ReceivedAt)
}

func TestEnqueueSlackAndLinearTypes(t *testing.T) {
	emit := &recordingEmitter{}
	svc := newTestService(t, emit)

	require.NoError(t, svc.Enqueue(context.Background(), enums.ProviderSlack, "message", []byte(`{}`), time.Now()))
	require.NoError(t, svc.Enqueue(context.Background(), enums.ProviderLinear, "issue.upserted", []byte(`{}`), time.Now()))

	require.Len(t, emit.events, 2)
	assert.Equal(t, enums.EventSlackEventReceived, emit.events[0].EventType)
	assert.Equal(t, enums.EventLinearEventReceived, emit.events[1].EventType)
}

func TestEnqueueUnknownProvider(t *testing.T) {
	emit := &recordingEmitter{}
	svc := newTestService(t, emit)

	err := svc.Enqueue(context.Background(), enums.Provider("fax"), "beep", []byte(`{}`), time.Now())
	require.Error(t, err)
	assert.Empty(t, emit.events)
}
