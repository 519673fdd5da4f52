package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatherly-app/gatherly-backend/api/middleware"
	"github.com/gatherly-app/gatherly-backend/internal/notifications"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

func newNotificationsHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`
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
);`).Error)

	service, err := notifications.NewService(notifications.NewRepository(db))
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return ListNotifications(service, logg)
}

func scopedRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := middleware.WithScope(req.Context(), types.Scope{OrganizationID: uuid.New()})
	return req.WithContext(ctx)
}

func TestListNotificationsMalformedCursorIsBadRequest(t *testing.T) {
	handler := newNotificationsHandler(t)

	for _, target := range []string{
		"/notifications?after=garbage",
		"/notifications?before=aGVsbG8=",
	} {
		resp := httptest.NewRecorder()
		handler(resp, scopedRequest(t, target))

		require.Equal(t, http.StatusBadRequest, resp.Code, "target %s", target)

		var envelope types.ErrorEnvelope
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
		assert.Equal(t, string(pkgerrors.CodeValidation), envelope.Error.Code)
	}
}

func TestListNotificationsNonNumericLimitUsesDefault(t *testing.T) {
	handler := newNotificationsHandler(t)

	resp := httptest.NewRecorder()
	handler(resp, scopedRequest(t, "/notifications?limit=abc"))

	require.Equal(t, http.StatusOK, resp.Code)
}
