package calls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/internal/events/hms"
	"github.com/gatherly-app/gatherly-backend/internal/webhooks"
	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

// Rooms provisioned for threads carry both owning ids in the room name, so a
// provider event can be scoped without a lookup: gt:<org_uuid>:<thread_uuid>.
const roomPrefix = "gt"

type dispatcher interface {
	Dispatch(ctx context.Context, tx *gorm.DB, event webhooks.DomainEvent) ([]models.WebhookEvent, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo       *Repository
	Dispatcher dispatcher
	TxRunner   txRunner
	Logger     *logger.Logger
}

// Service applies call-infra events to call state. Every handler is safe
// under at-least-once and out-of-order delivery.
type Service struct {
	repo       *Repository
	dispatcher dispatcher
	txRunner   txRunner
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "calls repo required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:       params.Repo,
		dispatcher: params.Dispatcher,
		txRunner:   params.TxRunner,
		logg:       params.Logger,
	}, nil
}

// HandleRaw parses a raw provider payload and applies it. It is the worker's
// entry point; the raw string crossed the queue boundary, not a parsed
// object.
func (s *Service) HandleRaw(ctx context.Context, rawPayload string) error {
	event, err := hms.Parse([]byte(rawPayload))
	if err != nil {
		// an unparseable payload will not improve on retry
		s.logg.Error(ctx, "unparseable call payload", err)
		return nil
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent routes one parsed event to its handler.
func (s *Service) HandleEvent(ctx context.Context, event hms.Event) error {
	switch e := event.(type) {
	case hms.SessionOpened:
		return s.handleSessionOpened(ctx, e)
	case hms.SessionClosed:
		return s.handleSessionClosed(ctx, e)
	case hms.RecordingReady:
		return s.handleRecordingReady(ctx, e)
	case hms.TranscriptionStarted:
		return s.handleTranscriptionStarted(ctx, e)
	case hms.TranscriptionCompleted:
		return s.handleTranscriptionCompleted(ctx, e)
	case hms.TranscriptionFailed:
		return s.handleTranscriptionFailed(ctx, e)
	case hms.Unsupported:
		s.logg.Info(s.logg.WithField(ctx, "hms_event_type", e.Type), "skipping unsupported call event")
		return nil
	default:
		return nil
	}
}

// handleSessionOpened finds or creates the call for the session. Duplicate
// deliveries converge on the unique session index; the loser of a racing
// insert rolls back and the winner's commit carries the fan-out.
func (s *Service) handleSessionOpened(ctx context.Context, event hms.SessionOpened) error {
	orgID, _, err := parseRoomID(event.RoomID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "room_id", event.RoomID), "call event for unrecognized room")
		return nil
	}

	existing, err := s.repo.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	call := &models.Call{
		OrganizationID:    orgID,
		RoomID:            event.RoomID,
		ExternalSessionID: event.SessionID,
		Status:            enums.CallStatusActive,
		StartedAt:         event.StartedAt,
	}
	// Create and fan-out commit together so a redelivery after a transient
	// dispatch failure retries both instead of finding the call and stopping.
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, call); err != nil {
			return err
		}
		_, err := s.dispatcher.Dispatch(ctx, tx, webhooks.DomainEvent{
			Type:           enums.WebhookEventCallStarted,
			OrganizationID: orgID,
			SubjectType:    "call",
			SubjectID:      call.ID,
			Data: map[string]any{
				"call_id":    call.ID.String(),
				"room_id":    call.RoomID,
				"started_at": call.StartedAt.UTC().Format(time.RFC3339),
			},
		})
		return err
	})
	if db.IsUniqueViolation(err, "ux_calls_external_session_id") {
		// the racing winner committed the call and its fan-out
		return nil
	}
	return err
}

// handleSessionClosed is update-or-noop: a close for an unknown session is
// acked without work. Status flip, summary message and fan-out commit as one
// transaction, so a failed delivery leaves the call active and the redelivery
// redoes all three.
func (s *Service) handleSessionClosed(ctx context.Context, event hms.SessionClosed) error {
	call, err := s.repo.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if call == nil {
		s.logg.Info(s.logg.WithField(ctx, "session_id", event.SessionID), "close for unknown session")
		return nil
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		closed, err := s.repo.CloseTx(tx, event.SessionID, event.EndedAt)
		if err != nil {
			return err
		}
		if !closed {
			// already ended by an earlier delivery
			return nil
		}

		if orgID, threadID, err := parseRoomID(call.RoomID); err == nil {
			exists, err := s.repo.HasSummaryMessageTx(tx, call.ID, threadID)
			if err != nil {
				return err
			}
			if !exists {
				callID := call.ID
				message := &models.Message{
					OrganizationID: orgID,
					ThreadID:       threadID,
					CallID:         &callID,
					Body:           fmt.Sprintf("Call ended after %s.", event.EndedAt.Sub(call.StartedAt).Round(time.Second)),
				}
				if err := s.repo.CreateMessageTx(tx, message); err != nil {
					return err
				}
			}
		}

		_, err = s.dispatcher.Dispatch(ctx, tx, webhooks.DomainEvent{
			Type:           enums.WebhookEventCallEnded,
			OrganizationID: call.OrganizationID,
			SubjectType:    "call",
			SubjectID:      call.ID,
			Data: map[string]any{
				"call_id":  call.ID.String(),
				"room_id":  call.RoomID,
				"ended_at": event.EndedAt.UTC().Format(time.RFC3339),
			},
		})
		return err
	})
}

// handleRecordingReady tolerates reordering: a recording for a session we
// have not seen yet is a safe no-op, and the provider's redelivery after the
// session open arrives will backfill it.
func (s *Service) handleRecordingReady(ctx context.Context, event hms.RecordingReady) error {
	call, err := s.repo.FindBySessionID(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if call == nil {
		s.logg.Info(s.logg.WithField(ctx, "session_id", event.SessionID), "recording for unknown session")
		return nil
	}

	existing, err := s.repo.FindRecordingByExternalID(ctx, event.RecordingID)
	if err != nil {
		return err
	}

	fileURL := event.FileURL
	durationMS := event.DurationMS
	if existing != nil {
		_, err := s.repo.UpdateRecording(ctx, existing.ID, map[string]any{
			"status":      enums.RecordingStatusReady,
			"file_url":    fileURL,
			"duration_ms": durationMS,
		})
		return err
	}

	recording := &models.CallRecording{
		CallID:              call.ID,
		ExternalRecordingID: event.RecordingID,
		Status:              enums.RecordingStatusReady,
		FileURL:             &fileURL,
		DurationMS:          &durationMS,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateRecordingTx(tx, recording); err != nil {
			return err
		}
		_, err := s.dispatcher.Dispatch(ctx, tx, webhooks.DomainEvent{
			Type:           enums.WebhookEventCallRecording,
			OrganizationID: call.OrganizationID,
			SubjectType:    "call_recording",
			SubjectID:      recording.ID,
			Data: map[string]any{
				"call_id":      call.ID.String(),
				"recording_id": recording.ID.String(),
				"file_url":     fileURL,
				"duration_ms":  durationMS,
			},
		})
		return err
	})
	if db.IsUniqueViolation(err, "ux_call_recordings_external_id") {
		return nil
	}
	return err
}

func (s *Service) handleTranscriptionStarted(ctx context.Context, event hms.TranscriptionStarted) error {
	return s.updateTranscription(ctx, event.RecordingID, map[string]any{
		"transcription_id":     event.TranscriptionID,
		"transcription_status": enums.RecordingStatusProcessing,
	})
}

func (s *Service) handleTranscriptionCompleted(ctx context.Context, event hms.TranscriptionCompleted) error {
	return s.updateTranscription(ctx, event.RecordingID, map[string]any{
		"transcription_id":     event.TranscriptionID,
		"transcription_status": enums.RecordingStatusReady,
		"transcript_url":       event.TranscriptURL,
	})
}

func (s *Service) handleTranscriptionFailed(ctx context.Context, event hms.TranscriptionFailed) error {
	return s.updateTranscription(ctx, event.RecordingID, map[string]any{
		"transcription_id":     event.TranscriptionID,
		"transcription_status": enums.RecordingStatusFailed,
	})
}

func (s *Service) updateTranscription(ctx context.Context, recordingID string, updates map[string]any) error {
	matched, err := s.repo.UpdateRecordingByExternalID(ctx, recordingID, updates)
	if err != nil {
		return err
	}
	if !matched {
		s.logg.Info(s.logg.WithField(ctx, "recording_id", recordingID), "transcription for unknown recording")
	}
	return nil
}

func parseRoomID(roomID string) (uuid.UUID, uuid.UUID, error) {
	parts := strings.Split(roomID, ":")
	if len(parts) != 3 || parts[0] != roomPrefix {
		return uuid.Nil, uuid.Nil, fmt.Errorf("unrecognized room id %q", roomID)
	}
	orgID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("room org id: %w", err)
	}
	threadID, err := uuid.Parse(parts[2])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("room thread id: %w", err)
	}
	return orgID, threadID, nil
}
