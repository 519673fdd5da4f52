package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// -- subscriptions --

func (r *Repository) CreateSubscription(ctx context.Context, subscription *models.WebhookSubscription) error {
	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *Repository) FindSubscription(ctx context.Context, orgID, id uuid.UUID) (*models.WebhookSubscription, error) {
	var subscription models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// ListSubscriptions pages the organization's subscriptions, newest first.
func (r *Repository) ListSubscriptions(ctx context.Context, orgID uuid.UUID, params pagination.Params) (pagination.Page[models.WebhookSubscription], error) {
	query := r.db.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("organization_id = ? AND discarded_at IS NULL", orgID)

	query, reversed, err := pagination.Apply(query, params)
	if err != nil {
		return pagination.Page[models.WebhookSubscription]{}, err
	}

	var rows []models.WebhookSubscription
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.WebhookSubscription]{}, err
	}

	return pagination.BuildPage(rows, params, reversed, func(s models.WebhookSubscription) pagination.Cursor {
		return pagination.Cursor{SortTime: s.CreatedAt, ID: s.ID}
	}), nil
}

// DiscardSubscription soft-deletes; pending deliveries see the stamp and ack
// without posting.
func (r *Repository) DiscardSubscription(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("organization_id = ? AND id = ? AND discarded_at IS NULL", orgID, id).
		Update("discarded_at", time.Now().UTC())
	return result.RowsAffected > 0, result.Error
}

// ActiveSubscriptionsForOrgTx loads non-discarded subscriptions inside the
// dispatch transaction.
func (r *Repository) ActiveSubscriptionsForOrgTx(tx *gorm.DB, orgID uuid.UUID) ([]models.WebhookSubscription, error) {
	var rows []models.WebhookSubscription
	err := tx.
		Where("organization_id = ? AND discarded_at IS NULL", orgID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// -- events --

func (r *Repository) CreateEventTx(tx *gorm.DB, event *models.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return tx.Create(event).Error
}

func (r *Repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *Repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	var subscription models.WebhookSubscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *Repository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.WebhookEventDelivered,
			"delivered_at":  deliveredAt,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// RecordFailure bumps the attempt counter and keeps the last error for
// inspection; the row stays pending for redelivery.
func (r *Repository) RecordFailure(ctx context.Context, id uuid.UUID, cause error) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    cause.Error(),
		}).Error
}

// MarkFailed is the terminal state after the attempt ceiling: the row is
// retained with its last error, never silently dropped.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	updates := map[string]any{
		"status":        enums.WebhookEventFailed,
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListEventsBySubscription pages a subscription's delivery history, newest
// first.
func (r *Repository) ListEventsBySubscription(ctx context.Context, subscriptionID uuid.UUID, params pagination.Params) (pagination.Page[models.WebhookEvent], error) {
	query := r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("subscription_id = ?", subscriptionID)

	query, reversed, err := pagination.Apply(query, params)
	if err != nil {
		return pagination.Page[models.WebhookEvent]{}, err
	}

	var rows []models.WebhookEvent
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.WebhookEvent]{}, err
	}

	return pagination.BuildPage(rows, params, reversed, func(e models.WebhookEvent) pagination.Cursor {
		return pagination.Cursor{SortTime: e.CreatedAt, ID: e.ID}
	}), nil
}

// DeleteEventsBefore removes settled (delivered or failed) rows older than
// the cutoff; used by the retention cron.
func (r *Repository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]enums.WebhookEventStatus{enums.WebhookEventDelivered, enums.WebhookEventFailed}, cutoff).
		Delete(&models.WebhookEvent{})
	return result.RowsAffected, result.Error
}
