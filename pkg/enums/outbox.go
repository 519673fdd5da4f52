package enums

// OutboxEventType enumerates the jobs and domain events routed through the
// transactional outbox.
type OutboxEventType string

const (
	// Inbound provider payloads handed to background handlers.
	EventHMSEventReceived    OutboxEventType = "hms.event.received"
	EventSlackEventReceived  OutboxEventType = "slack.event.received"
	EventLinearEventReceived OutboxEventType = "linear.event.received"

	// Outbound webhook delivery jobs, one per webhook_events row.
	EventWebhookDeliveryRequested OutboxEventType = "webhook.delivery.requested"
)

// OutboxAggregateType names the entity an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregateInboundEvent OutboxAggregateType = "inbound_event"
	AggregateWebhookEvent OutboxAggregateType = "webhook_event"
)
