package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary; every subscription, call and
// notification hangs off one organization.
type Organization struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Slug      string    `gorm:"column:slug;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OAuthApplication is an integration registered by an organization. Webhook
// subscriptions belong to applications, and events created by an application
// carry its id for echo suppression.
type OAuthApplication struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	Name           string     `gorm:"column:name;type:text;not null"`
	DiscardedAt    *time.Time `gorm:"column:discarded_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// Active reports whether the application can still receive deliveries.
func (a OAuthApplication) Active() bool {
	return a.DiscardedAt == nil
}
