package webhooks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

var knownEventTypes = map[enums.WebhookEventType]struct{}{
	enums.WebhookEventPostCreated:    {},
	enums.WebhookEventCommentCreated: {},
	enums.WebhookEventMessageCreated: {},
	enums.WebhookEventMessageDM:      {},
	enums.WebhookEventCallStarted:    {},
	enums.WebhookEventCallEnded:      {},
	enums.WebhookEventCallRecording:  {},
}

type CreateSubscriptionInput struct {
	ApplicationID uuid.UUID `json:"application_id" validate:"required"`
	URL           string    `json:"url" validate:"required,url"`
	Secret        string    `json:"secret" validate:"required,min=16"`
	EventTypes    []string  `json:"event_types" validate:"required,min=1,dive,required"`
}

// Service is the registration surface subscriptions come from.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks repo required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) CreateSubscription(ctx context.Context, scope types.Scope, input CreateSubscriptionInput) (*models.WebhookSubscription, error) {
	if !scope.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	for _, eventType := range input.EventTypes {
		if _, ok := knownEventTypes[enums.WebhookEventType(eventType)]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event type %q", eventType))
		}
	}

	subscription := &models.WebhookSubscription{
		OrganizationID: scope.OrganizationID,
		ApplicationID:  input.ApplicationID,
		URL:            input.URL,
		Secret:         input.Secret,
		EventTypes:     pq.StringArray(input.EventTypes),
	}
	if err := s.repo.CreateSubscription(ctx, subscription); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return subscription, nil
}

func (s *Service) ListSubscriptions(ctx context.Context, scope types.Scope, params pagination.Params) (pagination.Page[models.WebhookSubscription], error) {
	if !scope.Valid() {
		return pagination.Page[models.WebhookSubscription]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	return s.repo.ListSubscriptions(ctx, scope.OrganizationID, params)
}

// ListEvents pages a subscription's delivery history. The subscription must
// belong to the caller's organization.
func (s *Service) ListEvents(ctx context.Context, scope types.Scope, subscriptionID uuid.UUID, params pagination.Params) (pagination.Page[models.WebhookEvent], error) {
	if !scope.Valid() {
		return pagination.Page[models.WebhookEvent]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	subscription, err := s.repo.FindSubscription(ctx, scope.OrganizationID, subscriptionID)
	if err != nil {
		return pagination.Page[models.WebhookEvent]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find subscription")
	}
	if subscription == nil {
		return pagination.Page[models.WebhookEvent]{}, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return s.repo.ListEventsBySubscription(ctx, subscriptionID, params)
}

func (s *Service) DiscardSubscription(ctx context.Context, scope types.Scope, id uuid.UUID) error {
	if !scope.Valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "organization scope required")
	}
	discarded, err := s.repo.DiscardSubscription(ctx, scope.OrganizationID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard subscription")
	}
	if !discarded {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return nil
}
