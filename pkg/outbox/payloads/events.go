// Package payloads defines the data shapes carried inside outbox payload
// envelopes. Shapes are versioned implicitly through the envelope version;
// fields are only ever added.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// InboundEventPayload carries a raw provider payload from the webhook
// controller to its background handler. The body is kept verbatim so the
// handler parses exactly what the provider sent.
type InboundEventPayload struct {
	Provider   enums.Provider `json:"provider"`
	EventType  string         `json:"eventType"`
	RawPayload string         `json:"rawPayload"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

// WebhookDeliveryRequestedEvent asks the delivery consumer to attempt one
// stored webhook event. The payload itself lives on the webhook_events row.
type WebhookDeliveryRequestedEvent struct {
	WebhookEventID uuid.UUID `json:"webhookEventId"`
}
