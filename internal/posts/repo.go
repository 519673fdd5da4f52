package posts

import (
	"context"
	"errors"

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

func (r *Repository) CreateTx(tx *gorm.DB, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	return tx.Create(post).Error
}

func (r *Repository) Find(ctx context.Context, orgID, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// List pages a channel's posts, newest first.
func (r *Repository) List(ctx context.Context, orgID, channelID uuid.UUID, params pagination.Params) (pagination.Page[models.Post], error) {
	query := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("organization_id = ? AND channel_id = ?", orgID, channelID)

	query, reversed, err := pagination.Apply(query, params)
	if err != nil {
		return pagination.Page[models.Post]{}, err
	}

	var rows []models.Post
	if err := query.Find(&rows).Error; err != nil {
		return pagination.Page[models.Post]{}, err
	}

	return pagination.BuildPage(rows, params, reversed, func(p models.Post) pagination.Cursor {
		return pagination.Cursor{SortTime: p.CreatedAt, ID: p.ID}
	}), nil
}
