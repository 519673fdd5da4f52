// Package hms parses call-infrastructure webhook payloads into a closed set
// of event variants. Unknown types map to Unsupported so controllers can ack
// them without work instead of failing validation.
package hms

import (
	"encoding/json"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

// Event is one parsed call-infra event. The variant set is closed; consumers
// switch exhaustively and treat Unsupported as a no-op.
type Event interface {
	isEvent()
	EventType() string
}

type SessionOpened struct {
	SessionID string
	RoomID    string
	StartedAt time.Time
}

type SessionClosed struct {
	SessionID string
	EndedAt   time.Time
}

type RecordingReady struct {
	SessionID   string
	RecordingID string
	FileURL     string
	DurationMS  int64
}

type TranscriptionStarted struct {
	RecordingID     string
	TranscriptionID string
}

type TranscriptionCompleted struct {
	RecordingID     string
	TranscriptionID string
	TranscriptURL   string
}

type TranscriptionFailed struct {
	RecordingID     string
	TranscriptionID string
}

// Unsupported is the explicit variant for authentic payloads whose type we
// intentionally ignore.
type Unsupported struct {
	Type string
}

func (SessionOpened) isEvent()          {}
func (SessionClosed) isEvent()          {}
func (RecordingReady) isEvent()         {}
func (TranscriptionStarted) isEvent()   {}
func (TranscriptionCompleted) isEvent() {}
func (TranscriptionFailed) isEvent()    {}
func (Unsupported) isEvent()            {}

func (SessionOpened) EventType() string          { return TypeSessionOpen }
func (SessionClosed) EventType() string          { return TypeSessionClose }
func (RecordingReady) EventType() string         { return TypeRecordingSuccess }
func (TranscriptionStarted) EventType() string   { return TypeTranscriptionStarted }
func (TranscriptionCompleted) EventType() string { return TypeTranscriptionSuccess }
func (TranscriptionFailed) EventType() string    { return TypeTranscriptionFailure }
func (u Unsupported) EventType() string          { return u.Type }

const (
	TypeSessionOpen          = "session.open.success"
	TypeSessionClose         = "session.close.success"
	TypeRecordingSuccess     = "beam.recording.success"
	TypeTranscriptionStarted = "transcription.started.success"
	TypeTranscriptionSuccess = "transcription.success"
	TypeTranscriptionFailure = "transcription.failure"
)

type envelope struct {
	Version string          `json:"version"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	SessionID        string    `json:"session_id"`
	RoomID           string    `json:"room_id"`
	SessionStartedAt time.Time `json:"session_started_at"`
	SessionStoppedAt time.Time `json:"session_stopped_at"`
}

type recordingData struct {
	SessionID    string `json:"session_id"`
	BeamID       string `json:"beam_id"`
	RecordingURL string `json:"recording_presigned_url"`
	Duration     int64  `json:"duration"`
}

type transcriptionData struct {
	BeamID          string `json:"beam_id"`
	TranscriptionID string `json:"transcription_id"`
	TranscriptURL   string `json:"transcript_txt_presigned_url"`
}

// Parse maps a raw payload to its event variant by the type discriminator.
func Parse(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse hms payload")
	}
	if env.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hms payload missing type")
	}

	switch env.Type {
	case TypeSessionOpen:
		var data sessionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse session open data")
		}
		if data.SessionID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "session open missing session_id")
		}
		startedAt := data.SessionStartedAt
		if startedAt.IsZero() {
			startedAt = time.Now().UTC()
		}
		return SessionOpened{SessionID: data.SessionID, RoomID: data.RoomID, StartedAt: startedAt}, nil
	case TypeSessionClose:
		var data sessionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse session close data")
		}
		if data.SessionID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "session close missing session_id")
		}
		endedAt := data.SessionStoppedAt
		if endedAt.IsZero() {
			endedAt = time.Now().UTC()
		}
		return SessionClosed{SessionID: data.SessionID, EndedAt: endedAt}, nil
	case TypeRecordingSuccess:
		var data recordingData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse recording data")
		}
		if data.BeamID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recording missing beam_id")
		}
		return RecordingReady{
			SessionID:   data.SessionID,
			RecordingID: data.BeamID,
			FileURL:     data.RecordingURL,
			DurationMS:  data.Duration,
		}, nil
	case TypeTranscriptionStarted:
		data, err := parseTranscription(env.Data)
		if err != nil {
			return nil, err
		}
		return TranscriptionStarted{RecordingID: data.BeamID, TranscriptionID: data.TranscriptionID}, nil
	case TypeTranscriptionSuccess:
		data, err := parseTranscription(env.Data)
		if err != nil {
			return nil, err
		}
		return TranscriptionCompleted{
			RecordingID:     data.BeamID,
			TranscriptionID: data.TranscriptionID,
			TranscriptURL:   data.TranscriptURL,
		}, nil
	case TypeTranscriptionFailure:
		data, err := parseTranscription(env.Data)
		if err != nil {
			return nil, err
		}
		return TranscriptionFailed{RecordingID: data.BeamID, TranscriptionID: data.TranscriptionID}, nil
	default:
		return Unsupported{Type: env.Type}, nil
	}
}

func parseTranscription(raw json.RawMessage) (transcriptionData, error) {
	var data transcriptionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse transcription data")
	}
	if data.BeamID == "" {
		return data, pkgerrors.New(pkgerrors.CodeValidation, "transcription missing beam_id")
	}
	return data, nil
}
