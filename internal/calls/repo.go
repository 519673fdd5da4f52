package calls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// Repository persists calls, recordings and call summary messages.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Call, error) {
	var call models.Call
	err := r.db.WithContext(ctx).
		Where("external_session_id = ?", sessionID).
		First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

func (r *Repository) Create(ctx context.Context, call *models.Call) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *Repository) CreateTx(tx *gorm.DB, call *models.Call) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}
	return tx.Create(call).Error
}

// Close stamps the call ended. Returns false when no row matched, which the
// handler treats as an out-of-order no-op.
func (r *Repository) Close(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Call{}).
		Where("external_session_id = ? AND status = ?", sessionID, enums.CallStatusActive).
		Updates(map[string]any{
			"status":   enums.CallStatusEnded,
			"ended_at": endedAt,
		})
	return result.RowsAffected > 0, result.Error
}

// CloseTx is Close running on an open transaction so the status flip commits
// together with the summary message and the webhook fan-out.
func (r *Repository) CloseTx(tx *gorm.DB, sessionID string, endedAt time.Time) (bool, error) {
	result := tx.
		Model(&models.Call{}).
		Where("external_session_id = ? AND status = ?", sessionID, enums.CallStatusActive).
		Updates(map[string]any{
			"status":   enums.CallStatusEnded,
			"ended_at": endedAt,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) FindRecordingByExternalID(ctx context.Context, externalID string) (*models.CallRecording, error) {
	var recording models.CallRecording
	err := r.db.WithContext(ctx).
		Where("external_recording_id = ?", externalID).
		First(&recording).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

func (r *Repository) CreateRecording(ctx context.Context, recording *models.CallRecording) error {
	if recording.ID == uuid.Nil {
		recording.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(recording).Error
}

func (r *Repository) CreateRecordingTx(tx *gorm.DB, recording *models.CallRecording) error {
	if recording.ID == uuid.Nil {
		recording.ID = uuid.New()
	}
	return tx.Create(recording).Error
}

func (r *Repository) UpdateRecording(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CallRecording{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// UpdateRecordingByExternalID applies updates keyed by the provider's
// recording id. Returns false when the recording is unknown.
func (r *Repository) UpdateRecordingByExternalID(ctx context.Context, externalID string, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CallRecording{}).
		Where("external_recording_id = ?", externalID).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *Repository) CreateMessageTx(tx *gorm.DB, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return tx.Create(message).Error
}

// HasSummaryMessageTx reports whether the call already has its summary in the
// thread. Existence is checked instead of inserting and catching the unique
// violation: a violation would abort the surrounding transaction.
func (r *Repository) HasSummaryMessageTx(tx *gorm.DB, callID, threadID uuid.UUID) (bool, error) {
	var count int64
	err := tx.
		Model(&models.Message{}).
		Where("call_id = ? AND thread_id = ?", callID, threadID).
		Count(&count).Error
	return count > 0, err
}
