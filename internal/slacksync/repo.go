package slacksync

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

func (r *Repository) FindIntegrationByTeamID(ctx context.Context, teamID string) (*models.SlackIntegration, error) {
	var integration models.SlackIntegration
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// Revoke deactivates the workspace link. Re-running on an already revoked
// integration matches zero rows, which keeps uninstall handling idempotent.
func (r *Repository) Revoke(ctx context.Context, teamID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SlackIntegration{}).
		Where("team_id = ? AND revoked_at IS NULL", teamID).
		Update("revoked_at", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
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
