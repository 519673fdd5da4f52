// Package slack parses Slack Events API payloads into a closed set of event
// variants. The outer envelope carries its own discriminator
// (url_verification vs event_callback); inner events discriminate again on
// event.type.
package slack

import (
	"encoding/json"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

type Event interface {
	isEvent()
	EventType() string
}

// URLVerification is Slack's endpoint handshake; the controller echoes the
// challenge synchronously and nothing is enqueued.
type URLVerification struct {
	Challenge string
}

type AppUninstalled struct {
	TeamID string
}

type TokensRevoked struct {
	TeamID string
}

type MessagePosted struct {
	TeamID  string
	Channel string
	User    string
	Text    string
	TS      string
}

type Unsupported struct {
	Type string
}

func (URLVerification) isEvent() {}
func (AppUninstalled) isEvent()  {}
func (TokensRevoked) isEvent()   {}
func (MessagePosted) isEvent()   {}
func (Unsupported) isEvent()     {}

func (URLVerification) EventType() string { return TypeURLVerification }
func (AppUninstalled) EventType() string  { return TypeAppUninstalled }
func (TokensRevoked) EventType() string   { return TypeTokensRevoked }
func (MessagePosted) EventType() string   { return TypeMessage }
func (u Unsupported) EventType() string   { return u.Type }

const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
	TypeAppUninstalled  = "app_uninstalled"
	TypeTokensRevoked   = "tokens_revoked"
	TypeMessage         = "message"
)

type envelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	TeamID    string     `json:"team_id"`
	Event     *innerData `json:"event"`
}

type innerData struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
}

// Parse maps a raw payload to its event variant.
func Parse(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse slack payload")
	}

	switch env.Type {
	case TypeURLVerification:
		if env.Challenge == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "url_verification missing challenge")
		}
		return URLVerification{Challenge: env.Challenge}, nil
	case TypeEventCallback:
		if env.Event == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event_callback missing event")
		}
		if env.TeamID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event_callback missing team_id")
		}
		return parseInner(env.TeamID, *env.Event)
	case "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slack payload missing type")
	default:
		return Unsupported{Type: env.Type}, nil
	}
}

func parseInner(teamID string, event innerData) (Event, error) {
	switch event.Type {
	case TypeAppUninstalled:
		return AppUninstalled{TeamID: teamID}, nil
	case TypeTokensRevoked:
		return TokensRevoked{TeamID: teamID}, nil
	case TypeMessage:
		// bot echoes and edits carry a subtype; only plain user messages
		// become notifications
		if event.Subtype != "" {
			return Unsupported{Type: TypeMessage + "." + event.Subtype}, nil
		}
		return MessagePosted{
			TeamID:  teamID,
			Channel: event.Channel,
			User:    event.User,
			Text:    event.Text,
			TS:      event.TS,
		}, nil
	default:
		return Unsupported{Type: event.Type}, nil
	}
}
