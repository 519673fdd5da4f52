package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// List pages the organization's notifications, newest first. unreadOnly
// narrows the scope to rows without a read stamp.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, unreadOnly bool, params pagination.Params) (pagination.Page[models.Notification], error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("organization_id = ?", orgID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	query, reversed, err := pagination.Apply(query, params)
	if err != nil {
		return pagination.Page[models.Notification]{}, err
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.Notification]{}, err
	}

	return pagination.BuildPage(rows, params, reversed, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{SortTime: n.CreatedAt, ID: n.ID}
	}), nil
}

func (r *Repository) Find(ctx context.Context, orgID, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

// MarkRead stamps a notification. Re-marking matches zero rows.
func (r *Repository) MarkRead(ctx context.Context, orgID, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("organization_id = ? AND id = ? AND read_at IS NULL", orgID, id).
		Update("read_at", at)
	return result.RowsAffected > 0, result.Error
}

// DeleteOlderThan removes read notifications past the retention window.
func (r *Repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	result := tx.WithContext(ctx).
		Where("created_at < ? AND read_at IS NOT NULL", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
