// Package linearsync applies Linear workspace events and keeps the local
// team mirror fresh. Issue events upsert by the provider's id so duplicate
// and out-of-order deliveries converge; team sync is a debounced, paged walk
// of the Linear API.
package linearsync

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/events/linear"
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
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linearsync repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// HandleRaw parses a raw Linear payload and applies it.
func (s *Service) HandleRaw(ctx context.Context, rawPayload string) error {
	event, err := linear.Parse([]byte(rawPayload))
	if err != nil {
		s.logg.Error(ctx, "unparseable linear payload", err)
		return nil
	}
	return s.HandleEvent(ctx, event)
}

func (s *Service) HandleEvent(ctx context.Context, event linear.Event) error {
	switch e := event.(type) {
	case linear.IssueUpserted:
		return s.handleIssueUpserted(ctx, e)
	case linear.IssueRemoved:
		return s.handleIssueRemoved(ctx, e)
	case linear.CommentCreated:
		return s.handleCommentCreated(ctx, e)
	case linear.Unsupported:
		s.logg.Info(s.logg.WithField(ctx, "linear_event_type", e.Type), "skipping unsupported linear event")
		return nil
	default:
		return nil
	}
}

func (s *Service) integrationFor(ctx context.Context, workspaceID string) (*models.LinearIntegration, error) {
	integration, err := s.repo.FindIntegrationByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if integration == nil || !integration.Active() {
		s.logg.Info(s.logg.WithField(ctx, "workspace_id", workspaceID), "event for unlinked linear workspace")
		return nil, nil
	}
	return integration, nil
}

func (s *Service) handleIssueUpserted(ctx context.Context, event linear.IssueUpserted) error {
	integration, err := s.integrationFor(ctx, event.WorkspaceID)
	if err != nil || integration == nil {
		return err
	}

	updates := map[string]any{
		"identifier": event.Identifier,
		"title":      event.Title,
		"state":      event.State,
		"removed_at": nil,
	}
	matched, err := s.repo.UpdateIssueByExternalID(ctx, integration.OrganizationID, event.IssueID, updates)
	if err != nil {
		return err
	}
	if matched {
		return nil
	}

	issue := &models.LinearIssue{
		OrganizationID: integration.OrganizationID,
		ExternalID:     event.IssueID,
		Identifier:     event.Identifier,
		Title:          event.Title,
		State:          event.State,
	}
	err = s.repo.CreateIssue(ctx, issue)
	if db.IsUniqueViolation(err, "ux_linear_issues_org_external") {
		// lost the insert race to a concurrent delivery; converge via update
		_, err = s.repo.UpdateIssueByExternalID(ctx, integration.OrganizationID, event.IssueID, updates)
	}
	return err
}

func (s *Service) handleIssueRemoved(ctx context.Context, event linear.IssueRemoved) error {
	integration, err := s.integrationFor(ctx, event.WorkspaceID)
	if err != nil || integration == nil {
		return err
	}

	removed, err := s.repo.RemoveIssue(ctx, integration.OrganizationID, event.IssueID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !removed {
		s.logg.Info(s.logg.WithField(ctx, "issue_external_id", event.IssueID), "remove for unknown or already removed issue")
	}
	return nil
}

func (s *Service) handleCommentCreated(ctx context.Context, event linear.CommentCreated) error {
	integration, err := s.integrationFor(ctx, event.WorkspaceID)
	if err != nil || integration == nil {
		return err
	}

	// keyed by the provider's comment id so redeliveries converge on one
	// row; the racing insert that slips past the check lands on the unique
	// index
	sourceKey := "linear:comment:" + event.CommentID
	seen, err := s.repo.HasNotificationForSource(ctx, sourceKey)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	title := "New Linear comment"
	issue, err := s.repo.FindIssueByExternalID(ctx, integration.OrganizationID, event.IssueID)
	if err != nil {
		return err
	}
	if issue != nil {
		title = fmt.Sprintf("New comment on %s", issue.Identifier)
	}

	link := fmt.Sprintf("linear://issue/%s", event.IssueID)
	notification := &models.Notification{
		OrganizationID: integration.OrganizationID,
		Type:           enums.NotificationTypeIntegration,
		Title:          title,
		Body:           event.Body,
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
