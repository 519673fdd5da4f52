package slacksync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/internal/events/slack"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

func setupSlackTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS slack_integrations (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  team_id TEXT NOT NULL UNIQUE,
  revoked_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  link TEXT,
  source_key TEXT,
  read_at DATETIME,
  created_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_source_key
  ON notifications (source_key) WHERE source_key IS NOT NULL;`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newSlackService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	require.NoError(t, err)
	return service
}

func seedIntegration(t *testing.T, db *gorm.DB, teamID string) models.SlackIntegration {
	t.Helper()
	integration := models.SlackIntegration{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		TeamID:         teamID,
	}
	require.NoError(t, db.Create(&integration).Error)
	return integration
}

func TestAppUninstalledRevokesOnce(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	seedIntegration(t, db, "T123")

	event := slack.AppUninstalled{TeamID: "T123"}
	require.NoError(t, service.HandleEvent(context.Background(), event))
	// redelivery
	require.NoError(t, service.HandleEvent(context.Background(), event))

	var stored models.SlackIntegration
	require.NoError(t, db.Where("team_id = ?", "T123").First(&stored).Error)
	require.NotNil(t, stored.RevokedAt)
}

func TestRevokeUnknownTeamIsNoOp(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)

	require.NoError(t, service.HandleEvent(context.Background(), slack.TokensRevoked{TeamID: "T999"}))
}

func TestMessageCreatesNotificationForLinkedWorkspace(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	integration := seedIntegration(t, db, "T123")

	require.NoError(t, service.HandleEvent(context.Background(), slack.MessagePosted{
		TeamID:  "T123",
		Channel: "C9",
		User:    "U7",
		Text:    "deploy is done",
		TS:      "1725000000.000100",
	}))

	var notification models.Notification
	require.NoError(t, db.First(&notification).Error)
	assert.Equal(t, integration.OrganizationID, notification.OrganizationID)
	assert.Equal(t, "deploy is done", notification.Body)
	require.NotNil(t, notification.Link)
}

func TestDuplicateMessageDeliveryProducesOneNotification(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	seedIntegration(t, db, "T123")

	raw := `{
		"type": "event_callback",
		"team_id": "T123",
		"event": {"type": "message", "channel": "C9", "user": "U7", "text": "hi", "ts": "1725000000.000100"}
	}`
	require.NoError(t, service.HandleRaw(context.Background(), raw))
	// at-least-once redelivery of the same payload
	require.NoError(t, service.HandleRaw(context.Background(), raw))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDistinctMessagesEachNotify(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	seedIntegration(t, db, "T123")

	for _, ts := range []string{"1725000000.000100", "1725000000.000200"} {
		require.NoError(t, service.HandleEvent(context.Background(), slack.MessagePosted{
			TeamID:  "T123",
			Channel: "C9",
			Text:    "hi",
			TS:      ts,
		}))
	}

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestMessageForRevokedWorkspaceIsNoOp(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	integration := seedIntegration(t, db, "T123")
	now := time.Now().UTC()
	require.NoError(t, db.Model(&integration).Update("revoked_at", now).Error)

	require.NoError(t, service.HandleEvent(context.Background(), slack.MessagePosted{
		TeamID: "T123",
		Text:   "hello",
	}))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHandleRawSkipsUnparseable(t *testing.T) {
	db := setupSlackTestDB(t)
	service := newSlackService(t, db)
	require.NoError(t, service.HandleRaw(context.Background(), "not json"))
}
