package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox"
	"github.com/gatherly-app/gatherly-backend/pkg/outbox/payloads"
)

func testConfig() config.PubSubConfig {
	return config.PubSubConfig{
		EventsTopic:     "events",
		DeliveriesTopic: "deliveries",
	}
}

func encodeEnvelope(t *testing.T, data interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	return payload
}

func TestNewEventRegistry_RequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{DeliveriesTopic: "d"})
	assert.Error(t, err)

	_, err = NewEventRegistry(config.PubSubConfig{EventsTopic: "e"})
	assert.Error(t, err)
}

func TestResolve_InboundEvent(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	require.NoError(t, err)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventSlackEventReceived,
		AggregateType: enums.AggregateInboundEvent,
		AggregateID:   uuid.New(),
		Payload: encodeEnvelope(t, payloads.InboundEventPayload{
			Provider:   enums.ProviderSlack,
			EventType:  "message",
			RawPayload: `{"type":"event_callback"}`,
			ReceivedAt: time.Now().UTC(),
		}),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "events", resolved.Descriptor.Topic)
	assert.Equal(t, enums.ProviderSlack, resolved.Descriptor.Provider)

	payload, ok := resolved.Payload.(*payloads.InboundEventPayload)
	require.True(t, ok)
	assert.Equal(t, "message", payload.EventType)
	assert.Equal(t, `{"type":"event_callback"}`, payload.RawPayload)
}

func TestResolve_DeliveryRequested(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	require.NoError(t, err)

	webhookEventID := uuid.New()
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWebhookDeliveryRequested,
		AggregateType: enums.AggregateWebhookEvent,
		AggregateID:   webhookEventID,
		Payload: encodeEnvelope(t, payloads.WebhookDeliveryRequestedEvent{
			WebhookEventID: webhookEventID,
		}),
	}

	resolved, err := reg.Resolve(event)
	require.NoError(t, err)
	assert.Equal(t, "deliveries", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.WebhookDeliveryRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, webhookEventID, payload.WebhookEventID)
}

func TestResolve_NonRetryableFailures(t *testing.T) {
	reg, err := NewEventRegistry(testConfig())
	require.NoError(t, err)

	cases := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name: "unknown event type",
			event: models.OutboxEvent{
				EventType:     enums.OutboxEventType("bogus"),
				AggregateType: enums.AggregateInboundEvent,
				AggregateID:   uuid.New(),
			},
		},
		{
			name: "aggregate mismatch",
			event: models.OutboxEvent{
				EventType:     enums.EventHMSEventReceived,
				AggregateType: enums.AggregateWebhookEvent,
				AggregateID:   uuid.New(),
			},
		},
		{
			name: "missing aggregate id",
			event: models.OutboxEvent{
				EventType:     enums.EventHMSEventReceived,
				AggregateType: enums.AggregateInboundEvent,
			},
		},
		{
			name: "bad envelope json",
			event: models.OutboxEvent{
				EventType:     enums.EventHMSEventReceived,
				AggregateType: enums.AggregateInboundEvent,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`not json`),
			},
		},
		{
			name: "null data",
			event: models.OutboxEvent{
				EventType:     enums.EventHMSEventReceived,
				AggregateType: enums.AggregateInboundEvent,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage(`{"version":1,"eventId":"x","data":null}`),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Resolve(tc.event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry))
		})
	}
}
