package enums

// WebhookEventType enumerates the domain events subscribers can register for.
type WebhookEventType string

const (
	WebhookEventPostCreated    WebhookEventType = "post.created"
	WebhookEventCommentCreated WebhookEventType = "comment.created"
	WebhookEventMessageCreated WebhookEventType = "message.created"
	WebhookEventMessageDM      WebhookEventType = "message.dm"
	WebhookEventCallStarted    WebhookEventType = "call.started"
	WebhookEventCallEnded      WebhookEventType = "call.ended"
	WebhookEventCallRecording  WebhookEventType = "call.recording.ready"
)

// WebhookEventStatus tracks an outbound delivery row.
type WebhookEventStatus string

const (
	// WebhookEventPending means created but not yet (successfully) delivered.
	WebhookEventPending WebhookEventStatus = "pending"
	WebhookEventDelivered WebhookEventStatus = "delivered"
	// WebhookEventFailed means the retry ceiling was exhausted; the row is kept
	// for operator inspection rather than dropped.
	WebhookEventFailed WebhookEventStatus = "failed"
)
