package linearsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
)

type fakeTeamsClient struct {
	pages map[string]*TeamsPage
	err   error
	calls int
}

func (f *fakeTeamsClient) Teams(_ context.Context, after string) (*TeamsPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[after]
	if !ok {
		return &TeamsPage{}, nil
	}
	return page, nil
}

func newSyncer(t *testing.T, db *gorm.DB, client TeamsFetcher, now time.Time) *TeamSyncer {
	t.Helper()
	syncer, err := NewTeamSyncer(TeamSyncerParams{
		Repo:     NewRepository(db),
		Client:   client,
		Logger:   newTestLogger(),
		Debounce: 10 * time.Minute,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	return syncer
}

func TestSyncPagesAndDrainsStaleTeams(t *testing.T) {
	db := setupLinearTestDB(t)
	integration := seedLinearIntegration(t, db, "ws_1")
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	// a team from an earlier run that the API no longer reports
	stale := models.LinearTeam{
		OrganizationID: integration.OrganizationID,
		ExternalID:     "team_gone",
		Key:            "OLD",
		Name:           "Disbanded",
		SyncedAt:       now.Add(-24 * time.Hour),
	}
	require.NoError(t, NewRepository(db).CreateTeam(context.Background(), &stale))

	client := &fakeTeamsClient{pages: map[string]*TeamsPage{
		"": {
			Teams:       []TeamNode{{ID: "team_1", Key: "ENG", Name: "Engineering"}},
			EndCursor:   "cur_1",
			HasNextPage: true,
		},
		"cur_1": {
			Teams: []TeamNode{{ID: "team_2", Key: "OPS", Name: "Operations"}},
		},
	}}

	syncer := newSyncer(t, db, client, now)
	require.NoError(t, syncer.SyncIntegration(context.Background(), &integration))

	assert.Equal(t, 2, client.calls)

	var teams []models.LinearTeam
	require.NoError(t, db.Order("external_id").Find(&teams).Error)
	require.Len(t, teams, 2)
	assert.Equal(t, "team_1", teams[0].ExternalID)
	assert.Equal(t, "team_2", teams[1].ExternalID)

	var stored models.LinearIntegration
	require.NoError(t, db.First(&stored, "id = ?", integration.ID).Error)
	require.NotNil(t, stored.TeamsSyncedAt)
	assert.WithinDuration(t, now, *stored.TeamsSyncedAt, time.Second)
}

func TestSyncUpsertsExistingTeams(t *testing.T) {
	db := setupLinearTestDB(t)
	integration := seedLinearIntegration(t, db, "ws_1")
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	existing := models.LinearTeam{
		OrganizationID: integration.OrganizationID,
		ExternalID:     "team_1",
		Key:            "ENG",
		Name:           "Old Name",
		SyncedAt:       now.Add(-24 * time.Hour),
	}
	require.NoError(t, NewRepository(db).CreateTeam(context.Background(), &existing))

	client := &fakeTeamsClient{pages: map[string]*TeamsPage{
		"": {Teams: []TeamNode{{ID: "team_1", Key: "ENG", Name: "Engineering"}}},
	}}

	syncer := newSyncer(t, db, client, now)
	require.NoError(t, syncer.SyncIntegration(context.Background(), &integration))

	var teams []models.LinearTeam
	require.NoError(t, db.Find(&teams).Error)
	require.Len(t, teams, 1)
	assert.Equal(t, "Engineering", teams[0].Name)
}

func TestSyncDebounced(t *testing.T) {
	db := setupLinearTestDB(t)
	integration := seedLinearIntegration(t, db, "ws_1")
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	recent := now.Add(-time.Minute)
	require.NoError(t, db.Model(&integration).Update("teams_synced_at", recent).Error)
	integration.TeamsSyncedAt = &recent

	client := &fakeTeamsClient{}
	syncer := newSyncer(t, db, client, now)
	require.NoError(t, syncer.SyncIntegration(context.Background(), &integration))

	assert.Zero(t, client.calls)
}

func TestFailedFirstPageLeavesDebounceUnstamped(t *testing.T) {
	db := setupLinearTestDB(t)
	integration := seedLinearIntegration(t, db, "ws_1")
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeTeamsClient{err: pkgerrors.New(pkgerrors.CodeDependency, "linear api rate limited")}
	syncer := newSyncer(t, db, client, now)
	require.Error(t, syncer.SyncIntegration(context.Background(), &integration))

	var stored models.LinearIntegration
	require.NoError(t, db.First(&stored, "id = ?", integration.ID).Error)
	assert.Nil(t, stored.TeamsSyncedAt)
}

func TestSyncAllAggregatesFailures(t *testing.T) {
	db := setupLinearTestDB(t)
	seedLinearIntegration(t, db, "ws_1")
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeTeamsClient{err: pkgerrors.New(pkgerrors.CodeDependency, "boom")}
	syncer := newSyncer(t, db, client, now)
	assert.Error(t, syncer.SyncAll(context.Background()))
}

func TestSyncAllSkipsRevokedIntegrations(t *testing.T) {
	db := setupLinearTestDB(t)
	integration := seedLinearIntegration(t, db, "ws_1")
	require.NoError(t, db.Model(&integration).Update("revoked_at", time.Now().UTC()).Error)

	client := &fakeTeamsClient{}
	syncer := newSyncer(t, db, client, time.Now().UTC())
	require.NoError(t, syncer.SyncAll(context.Background()))
	assert.Zero(t, client.calls)
}
