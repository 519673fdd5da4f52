// Package posts serves channel posts: a paginated list surface and a create
// path that fans post.created out to webhook subscribers in the same
// transaction as the insert.
package posts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/internal/webhooks"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Dispatch(ctx context.Context, tx *gorm.DB, event webhooks.DomainEvent) ([]models.WebhookEvent, error)
}

type CreatePostInput struct {
	ChannelID uuid.UUID `json:"channel_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Body      string    `json:"body" validate:"required"`
}

type ServiceParams struct {
	Repo       *Repository
	DB         txRunner
	Dispatcher dispatcher
}

type Service struct {
	repo       *Repository
	db         txRunner
	dispatcher dispatcher
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "posts repo required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db runner required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook dispatcher required")
	}
	return &Service{repo: params.Repo, db: params.DB, dispatcher: params.Dispatcher}, nil
}

func (s *Service) Create(ctx context.Context, scope types.Scope, input CreatePostInput) (*models.Post, error) {
	if !scope.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}

	post := &models.Post{
		OrganizationID: scope.OrganizationID,
		ChannelID:      input.ChannelID,
		Title:          input.Title,
		Body:           input.Body,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, post); err != nil {
			return err
		}
		_, err := s.dispatcher.Dispatch(ctx, tx, webhooks.DomainEvent{
			Type:               enums.WebhookEventPostCreated,
			OrganizationID:     scope.OrganizationID,
			ActorApplicationID: scope.ApplicationID,
			SubjectType:        "post",
			SubjectID:          post.ID,
			Data: map[string]any{
				"post_id":    post.ID,
				"channel_id": post.ChannelID,
				"title":      post.Title,
			},
		})
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create post")
	}
	return post, nil
}

func (s *Service) List(ctx context.Context, scope types.Scope, channelID uuid.UUID, params pagination.Params) (pagination.Page[models.Post], error) {
	if !scope.Valid() {
		return pagination.Page[models.Post]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	if channelID == uuid.Nil {
		return pagination.Page[models.Post]{}, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	return s.repo.List(ctx, scope.OrganizationID, channelID, params)
}
