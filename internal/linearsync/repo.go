package linearsync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindIntegrationByWorkspaceID(ctx context.Context, workspaceID string) (*models.LinearIntegration, error) {
	var integration models.LinearIntegration
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// ActiveIntegrations lists the workspace links the team sync job walks.
func (r *Repository) ActiveIntegrations(ctx context.Context) ([]models.LinearIntegration, error) {
	var integrations []models.LinearIntegration
	err := r.db.WithContext(ctx).
		Where("revoked_at IS NULL").
		Order("created_at ASC").
		Find(&integrations).Error
	return integrations, err
}

// StampTeamsSyncedAt records the start of a sync run. Only the first page of
// a run calls this; the stamp is what the debounce check reads.
func (r *Repository) StampTeamsSyncedAt(ctx context.Context, integrationID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.LinearIntegration{}).
		Where("id = ?", integrationID).
		Update("teams_synced_at", at).Error
}

func (r *Repository) FindIssueByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*models.LinearIssue, error) {
	var issue models.LinearIssue
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", orgID, externalID).
		First(&issue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &issue, nil
}

func (r *Repository) CreateIssue(ctx context.Context, issue *models.LinearIssue) error {
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(issue).Error
}

// UpdateIssueByExternalID reports whether a row matched so callers can fall
// back to creating one.
func (r *Repository) UpdateIssueByExternalID(ctx context.Context, orgID uuid.UUID, externalID string, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LinearIssue{}).
		Where("organization_id = ? AND external_id = ?", orgID, externalID).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// RemoveIssue soft-removes the issue. A duplicate remove matches zero rows.
func (r *Repository) RemoveIssue(ctx context.Context, orgID uuid.UUID, externalID string, removedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LinearIssue{}).
		Where("organization_id = ? AND external_id = ? AND removed_at IS NULL", orgID, externalID).
		Update("removed_at", removedAt)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) FindTeamByExternalID(ctx context.Context, orgID uuid.UUID, externalID string) (*models.LinearTeam, error) {
	var team models.LinearTeam
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND external_id = ?", orgID, externalID).
		First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

func (r *Repository) CreateTeam(ctx context.Context, team *models.LinearTeam) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *Repository) UpdateTeamByExternalID(ctx context.Context, orgID uuid.UUID, externalID string, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LinearTeam{}).
		Where("organization_id = ? AND external_id = ?", orgID, externalID).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// DeleteTeamsStaleBefore drains teams no page of the completed run touched.
func (r *Repository) DeleteTeamsStaleBefore(ctx context.Context, orgID uuid.UUID, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND synced_at < ?", orgID, cutoff).
		Delete(&models.LinearTeam{})
	return result.RowsAffected, result.Error
}

func (r *Repository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// HasNotificationForSource reports whether an earlier delivery already
// produced the notification for this provider event.
func (r *Repository) HasNotificationForSource(ctx context.Context, sourceKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("source_key = ?", sourceKey).
		Count(&count).Error
	return count > 0, err
}
