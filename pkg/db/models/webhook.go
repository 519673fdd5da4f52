package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// WebhookSubscription registers an endpoint an OAuth application wants domain
// events delivered to. Matching is by membership of the emitted event type in
// EventTypes; only active, non-discarded subscriptions receive deliveries.
type WebhookSubscription struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID      `gorm:"column:organization_id;type:uuid;not null;index"`
	ApplicationID  uuid.UUID      `gorm:"column:application_id;type:uuid;not null;index"`
	URL            string         `gorm:"column:url;type:text;not null"`
	Secret         string         `gorm:"column:secret;type:text;not null"`
	EventTypes     pq.StringArray `gorm:"column:event_types;type:text[];not null"`
	DiscardedAt    *time.Time     `gorm:"column:discarded_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the subscription still receives deliveries.
func (s WebhookSubscription) Active() bool {
	return s.DiscardedAt == nil
}

// SubscribedTo reports membership of the event type in the subscribed set.
func (s WebhookSubscription) SubscribedTo(eventType enums.WebhookEventType) bool {
	for _, t := range s.EventTypes {
		if t == string(eventType) {
			return true
		}
	}
	return false
}

// WebhookEvent is one dispatch attempt record: created exactly once per
// (domain event, matching subscription) pair. The payload is frozen at
// creation time; retries deliver the stored bytes, never a re-render.
type WebhookEvent struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID                `gorm:"column:subscription_id;type:uuid;not null;index"`
	EventType      enums.WebhookEventType   `gorm:"column:event_type;type:text;not null"`
	Payload        json.RawMessage          `gorm:"column:payload;type:jsonb;not null"`
	SubjectType    string                   `gorm:"column:subject_type;type:text;not null"`
	SubjectID      uuid.UUID                `gorm:"column:subject_id;type:uuid;not null"`
	Status         enums.WebhookEventStatus `gorm:"column:status;type:text;not null;default:pending"`
	AttemptCount   int                      `gorm:"column:attempt_count;not null;default:0"`
	LastError      *string                  `gorm:"column:last_error"`
	DeliveredAt    *time.Time               `gorm:"column:delivered_at"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}
