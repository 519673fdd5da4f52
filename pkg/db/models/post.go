package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// Post is a channel post. List endpoints page posts by (created_at, id).
type Post struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index"`
	ChannelID      uuid.UUID `gorm:"column:channel_id;type:uuid;not null;index"`
	Title          string    `gorm:"column:title;type:text;not null"`
	Body           string    `gorm:"column:body;type:text;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Notification is an in-app notification scoped to an organization member.
type Notification struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;index"`
	Type           enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title          string                 `gorm:"column:title;type:text;not null"`
	Body           string                 `gorm:"column:body;type:text;not null"`
	Link           *string                `gorm:"column:link;type:text"`
	SourceKey      *string                `gorm:"column:source_key;type:text"`
	ReadAt         *time.Time             `gorm:"column:read_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}
