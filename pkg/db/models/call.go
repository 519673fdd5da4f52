package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// Call is a call session keyed by the provider's session id. The unique index
// on ExternalSessionID is what makes duplicate "session open" events converge
// on a single row.
type Call struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID        `gorm:"column:organization_id;type:uuid;not null;index"`
	RoomID            string           `gorm:"column:room_id;type:text;not null"`
	ExternalSessionID string           `gorm:"column:external_session_id;type:text;not null;uniqueIndex:ux_calls_external_session_id"`
	Status            enums.CallStatus `gorm:"column:status;type:text;not null;default:active"`
	StartedAt         time.Time        `gorm:"column:started_at;not null"`
	EndedAt           *time.Time       `gorm:"column:ended_at"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CallRecording tracks a recording (and its transcription) for a call.
// Recording and transcription events reference the provider's ids and may
// arrive before the call row exists; handlers treat a missing parent as a
// safe no-op.
type CallRecording struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CallID              uuid.UUID              `gorm:"column:call_id;type:uuid;not null;index"`
	ExternalRecordingID string                 `gorm:"column:external_recording_id;type:text;not null;uniqueIndex:ux_call_recordings_external_id"`
	Status              enums.RecordingStatus  `gorm:"column:status;type:text;not null;default:processing"`
	FileURL             *string                `gorm:"column:file_url;type:text"`
	DurationMS          *int64                 `gorm:"column:duration_ms"`
	TranscriptionID     *string                `gorm:"column:transcription_id;type:text"`
	TranscriptionStatus *enums.RecordingStatus `gorm:"column:transcription_status;type:text"`
	TranscriptURL       *string                `gorm:"column:transcript_url;type:text"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// Message is a thread message. A call summary message is unique per
// (call, thread); the compound index turns the racing duplicate insert into
// a benign conflict.
type Message struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID      uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	ThreadID            uuid.UUID  `gorm:"column:thread_id;type:uuid;not null;index;uniqueIndex:ux_messages_call_thread"`
	CallID              *uuid.UUID `gorm:"column:call_id;type:uuid;uniqueIndex:ux_messages_call_thread"`
	AuthorApplicationID *uuid.UUID `gorm:"column:author_application_id;type:uuid"`
	Body                string     `gorm:"column:body;type:text;not null"`
	DM                  bool       `gorm:"column:dm;not null;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
}
