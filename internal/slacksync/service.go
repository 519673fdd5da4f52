// Package slacksync applies Slack workspace events: uninstall/revocation
// deactivates the integration, channel messages surface as in-app
// notifications.
package slacksync

import (
	"context"
	"fmt"

	"github.com/gatherly-app/gatherly-backend/internal/events/slack"
	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

type ServiceParams struct {
	Repo   *Repository
	Logger *logger.Logger
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "slacksync repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// HandleRaw parses a raw Slack payload and applies it.
func (s *Service) HandleRaw(ctx context.Context, rawPayload string) error {
	event, err := slack.Parse([]byte(rawPayload))
	if err != nil {
		s.logg.Error(ctx, "unparseable slack payload", err)
		return nil
	}
	return s.HandleEvent(ctx, event)
}

func (s *Service) HandleEvent(ctx context.Context, event slack.Event) error {
	switch e := event.(type) {
	case slack.AppUninstalled:
		return s.deactivate(ctx, e.TeamID, "app_uninstalled")
	case slack.TokensRevoked:
		return s.deactivate(ctx, e.TeamID, "tokens_revoked")
	case slack.MessagePosted:
		return s.handleMessage(ctx, e)
	case slack.URLVerification:
		// handled synchronously by the controller; nothing to do here
		return nil
	case slack.Unsupported:
		s.logg.Info(s.logg.WithField(ctx, "slack_event_type", e.Type), "skipping unsupported slack event")
		return nil
	default:
		return nil
	}
}

func (s *Service) deactivate(ctx context.Context, teamID, reason string) error {
	revoked, err := s.repo.Revoke(ctx, teamID)
	if err != nil {
		return err
	}
	fields := map[string]any{"team_id": teamID, "reason": reason, "revoked": revoked}
	s.logg.Info(s.logg.WithFields(ctx, fields), "slack integration deactivation handled")
	return nil
}

func (s *Service) handleMessage(ctx context.Context, event slack.MessagePosted) error {
	integration, err := s.repo.FindIntegrationByTeamID(ctx, event.TeamID)
	if err != nil {
		return err
	}
	if integration == nil || !integration.Active() {
		s.logg.Info(s.logg.WithField(ctx, "team_id", event.TeamID), "message for unlinked workspace")
		return nil
	}

	// Slack timestamps are unique per channel; the source key makes a
	// redelivered message converge on one notification row. The racing insert
	// that slips past the existence check lands on the unique index.
	sourceKey := fmt.Sprintf("slack:%s:%s:%s", event.TeamID, event.Channel, event.TS)
	seen, err := s.repo.HasNotificationForSource(ctx, sourceKey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	link := fmt.Sprintf("slack://channel?team=%s&id=%s", event.TeamID, event.Channel)
	notification := &models.Notification{
		OrganizationID: integration.OrganizationID,
		Type:           enums.NotificationTypeIntegration,
		Title:          "New Slack message",
		Body:           event.Text,
		Link:           &link,
		SourceKey:      &sourceKey,
	}
	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		if db.IsUniqueViolation(err, "ux_notifications_source_key") {
			return nil
		}
		return err
	}
	return nil
}
