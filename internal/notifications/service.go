// Package notifications serves the in-app notification feed.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repo required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) List(ctx context.Context, scope types.Scope, unreadOnly bool, params pagination.Params) (pagination.Page[models.Notification], error) {
	if !scope.Valid() {
		return pagination.Page[models.Notification]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	return s.repo.List(ctx, scope.OrganizationID, unreadOnly, params)
}

func (s *Service) MarkRead(ctx context.Context, scope types.Scope, id uuid.UUID) error {
	if !scope.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	marked, err := s.repo.MarkRead(ctx, scope.OrganizationID, id, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if marked {
		return nil
	}

	// already read is fine; an id outside the org is not
	existing, err := s.repo.Find(ctx, scope.OrganizationID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
