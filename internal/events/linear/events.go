// Package linear parses Linear webhook payloads. The discriminator is the
// (type, action) pair; the payload also embeds its own timestamp which the
// controller validates against the clock before parsing.
package linear

import (
	"encoding/json"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

type Event interface {
	isEvent()
	EventType() string
}

type IssueUpserted struct {
	WorkspaceID string
	IssueID     string
	Identifier  string
	Title       string
	State       string
	TeamID      string
}

type IssueRemoved struct {
	WorkspaceID string
	IssueID     string
}

type CommentCreated struct {
	WorkspaceID string
	CommentID   string
	IssueID     string
	Body        string
}

type Unsupported struct {
	Type string
}

func (IssueUpserted) isEvent()  {}
func (IssueRemoved) isEvent()   {}
func (CommentCreated) isEvent() {}
func (Unsupported) isEvent()    {}

func (IssueUpserted) EventType() string  { return "issue.upserted" }
func (IssueRemoved) EventType() string   { return "issue.removed" }
func (CommentCreated) EventType() string { return "comment.created" }
func (u Unsupported) EventType() string  { return u.Type }

const (
	typeIssue   = "Issue"
	typeComment = "Comment"

	actionCreate = "create"
	actionUpdate = "update"
	actionRemove = "remove"
)

type envelope struct {
	Action           string          `json:"action"`
	Type             string          `json:"type"`
	OrganizationID   string          `json:"organizationId"`
	Data             json.RawMessage `json:"data"`
	WebhookTimestamp int64           `json:"webhookTimestamp"`
}

type issueData struct {
	ID         string     `json:"id"`
	Identifier string     `json:"identifier"`
	Title      string     `json:"title"`
	State      *stateData `json:"state"`
	TeamID     string     `json:"teamId"`
}

type stateData struct {
	Name string `json:"name"`
}

type commentData struct {
	ID      string `json:"id"`
	IssueID string `json:"issueId"`
	Body    string `json:"body"`
}

// Timestamp extracts the payload's embedded dispatch time without fully
// parsing it; validation happens before parse so a replayed body is rejected
// even when its event type would be unsupported.
func Timestamp(raw []byte) (time.Time, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse linear payload")
	}
	if env.WebhookTimestamp == 0 {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "linear payload missing webhookTimestamp")
	}
	return time.UnixMilli(env.WebhookTimestamp), nil
}

// Parse maps a raw payload to its event variant.
func Parse(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse linear payload")
	}
	if env.Type == "" || env.Action == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "linear payload missing type or action")
	}

	switch env.Type {
	case typeIssue:
		var data issueData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse issue data")
		}
		if data.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue missing id")
		}
		switch env.Action {
		case actionCreate, actionUpdate:
			state := ""
			if data.State != nil {
				state = data.State.Name
			}
			return IssueUpserted{
				WorkspaceID: env.OrganizationID,
				IssueID:     data.ID,
				Identifier:  data.Identifier,
				Title:       data.Title,
				State:       state,
				TeamID:      data.TeamID,
			}, nil
		case actionRemove:
			return IssueRemoved{WorkspaceID: env.OrganizationID, IssueID: data.ID}, nil
		default:
			return Unsupported{Type: typeIssue + "." + env.Action}, nil
		}
	case typeComment:
		if env.Action != actionCreate {
			return Unsupported{Type: typeComment + "." + env.Action}, nil
		}
		var data commentData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse comment data")
		}
		if data.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment missing id")
		}
		return CommentCreated{
			WorkspaceID: env.OrganizationID,
			CommentID:   data.ID,
			IssueID:     data.IssueID,
			Body:        data.Body,
		}, nil
	default:
		return Unsupported{Type: env.Type + "." + env.Action}, nil
	}
}
