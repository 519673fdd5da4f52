package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/pagination"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	db := setupWebhooksTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateSubscriptionPersistsWithOrgScope(t *testing.T) {
	svc, repo := newTestService(t)
	scope := types.Scope{OrganizationID: uuid.New()}
	appID := uuid.New()

	sub, err := svc.CreateSubscription(context.Background(), scope, CreateSubscriptionInput{
		ApplicationID: appID,
		URL:           "https://example.com/hook",
		Secret:        "sub-secret-0123456789",
		EventTypes:    []string{"post.created", "call.started"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, scope.OrganizationID, sub.OrganizationID)
	assert.Equal(t, appID, sub.ApplicationID)

	found, err := repo.FindSubscription(context.Background(), scope.OrganizationID, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.ElementsMatch(t, []string{"post.created", "call.started"}, []string(found.EventTypes))
}

func TestCreateSubscriptionRejectsUnknownEventType(t *testing.T) {
	svc, _ := newTestService(t)
	scope := types.Scope{OrganizationID: uuid.New()}

	_, err := svc.CreateSubscription(context.Background(), scope, CreateSubscriptionInput{
		ApplicationID: uuid.New(),
		URL:           "https://example.com/hook",
		Secret:        "sub-secret-0123456789",
		EventTypes:    []string{"post.created", "post.deleted"},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateSubscriptionRequiresScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSubscription(context.Background(), types.Scope{}, CreateSubscriptionInput{
		ApplicationID: uuid.New(),
		URL:           "https://example.com/hook",
		Secret:        "sub-secret-0123456789",
		EventTypes:    []string{"post.created"},
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestListSubscriptionsSkipsDiscardedAndOtherOrgs(t *testing.T) {
	svc, repo := newTestService(t)
	db := repo.db
	orgID := uuid.New()

	visible := seedSubscription(t, db, orgID, uuid.New(), []string{"post.created"}, false)
	seedSubscription(t, db, orgID, uuid.New(), []string{"post.created"}, true)
	seedSubscription(t, db, uuid.New(), uuid.New(), []string{"post.created"}, false)

	page, err := svc.ListSubscriptions(context.Background(), types.Scope{OrganizationID: orgID}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, visible.ID, page.Records[0].ID)
	assert.Nil(t, page.NextCursor)
}

func TestDiscardSubscription(t *testing.T) {
	svc, repo := newTestService(t)
	db := repo.db
	orgID := uuid.New()
	sub := seedSubscription(t, db, orgID, uuid.New(), []string{"post.created"}, false)

	require.NoError(t, svc.DiscardSubscription(context.Background(), types.Scope{OrganizationID: orgID}, sub.ID))

	page, err := svc.ListSubscriptions(context.Background(), types.Scope{OrganizationID: orgID}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Records)

	// discarding twice reports not found
	err = svc.DiscardSubscription(context.Background(), types.Scope{OrganizationID: orgID}, sub.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListEventsPagesNewestFirst(t *testing.T) {
	svc, repo := newTestService(t)
	db := repo.db
	orgID := uuid.New()
	sub := seedSubscription(t, db, orgID, uuid.New(), []string{"post.created"}, false)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		event := models.WebhookEvent{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			EventType:      enums.WebhookEventPostCreated,
			Payload:        []byte(`{}`),
			SubjectType:    "post",
			SubjectID:      uuid.New(),
			Status:         enums.WebhookEventPending,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&event).Error)
	}

	scope := types.Scope{OrganizationID: orgID}
	first, err := svc.ListEvents(context.Background(), scope, sub.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	require.NotNil(t, first.NextCursor)
	assert.True(t, first.Records[0].CreatedAt.After(first.Records[1].CreatedAt))

	rest, err := svc.ListEvents(context.Background(), scope, sub.ID, pagination.Params{Limit: 2, After: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Nil(t, rest.NextCursor)
}

func TestListEventsUnknownSubscriptionIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListEvents(context.Background(), types.Scope{OrganizationID: uuid.New()}, uuid.New(), pagination.Params{Limit: 10})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDiscardSubscriptionScopedToOrg(t *testing.T) {
	svc, repo := newTestService(t)
	db := repo.db
	sub := seedSubscription(t, db, uuid.New(), uuid.New(), []string{"post.created"}, false)

	err := svc.DiscardSubscription(context.Background(), types.Scope{OrganizationID: uuid.New()}, sub.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
