package linearsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/gatherly-app/gatherly-backend/pkg/db"
	"github.com/gatherly-app/gatherly-backend/pkg/db/models"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const defaultSyncDebounce = 10 * time.Minute

// TeamsFetcher is the slice of the Linear API the syncer pages through.
type TeamsFetcher interface {
	Teams(ctx context.Context, after string) (*TeamsPage, error)
}

type TeamSyncerParams struct {
	Repo     *Repository
	Client   TeamsFetcher
	Logger   *logger.Logger
	Debounce time.Duration
	Now      func() time.Time
}

// TeamSyncer walks every linked workspace and mirrors its teams. Each run
// stamps teams_synced_at once the first page lands, pages by cursor, then
// drains rows no page of the run touched. The stamp doubles as the debounce
// gate for the next run.
type TeamSyncer struct {
	repo     *Repository
	client   TeamsFetcher
	logg     *logger.Logger
	debounce time.Duration
	now      func() time.Time
}

func NewTeamSyncer(params TeamSyncerParams) (*TeamSyncer, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linearsync repo required")
	}
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linear client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	debounce := params.Debounce
	if debounce <= 0 {
		debounce = defaultSyncDebounce
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &TeamSyncer{
		repo:     params.Repo,
		client:   params.Client,
		logg:     params.Logger,
		debounce: debounce,
		now:      now,
	}, nil
}

// SyncAll syncs every active workspace link. One failing workspace does not
// stop the others; failures are aggregated.
func (s *TeamSyncer) SyncAll(ctx context.Context) error {
	integrations, err := s.repo.ActiveIntegrations(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list linear integrations")
	}

	var errs error
	for i := range integrations {
		if err := s.SyncIntegration(ctx, &integrations[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SyncIntegration runs one sync pass for a single workspace link.
func (s *TeamSyncer) SyncIntegration(ctx context.Context, integration *models.LinearIntegration) error {
	logCtx := s.logg.WithField(ctx, "organization_id", integration.OrganizationID)

	syncStart := s.now().UTC()
	if integration.TeamsSyncedAt != nil && syncStart.Sub(*integration.TeamsSyncedAt) < s.debounce {
		s.logg.Info(s.logg.WithField(logCtx, "teams_synced_at", *integration.TeamsSyncedAt), "team sync debounced")
		return nil
	}

	after := ""
	stamped := false
	pages := 0
	seen := 0
	for {
		page, err := s.client.Teams(ctx, after)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch linear teams page")
		}
		// Stamp only after the first page lands so a dead API call never
		// suppresses the next attempt via the debounce.
		if !stamped {
			if err := s.repo.StampTeamsSyncedAt(ctx, integration.ID, syncStart); err != nil {
				return err
			}
			stamped = true
		}
		pages++

		for _, node := range page.Teams {
			if err := s.upsertTeam(ctx, integration.OrganizationID, node, syncStart); err != nil {
				return err
			}
			seen++
		}

		if !page.HasNextPage || page.EndCursor == "" {
			break
		}
		after = page.EndCursor
	}

	drained, err := s.repo.DeleteTeamsStaleBefore(ctx, integration.OrganizationID, syncStart)
	if err != nil {
		return err
	}

	fields := map[string]any{"pages": pages, "teams": seen, "drained": drained}
	s.logg.Info(s.logg.WithFields(logCtx, fields), "linear team sync complete")
	return nil
}

func (s *TeamSyncer) upsertTeam(ctx context.Context, orgID uuid.UUID, node TeamNode, syncedAt time.Time) error {
	updates := map[string]any{
		"key":       node.Key,
		"name":      node.Name,
		"synced_at": syncedAt,
	}
	matched, err := s.repo.UpdateTeamByExternalID(ctx, orgID, node.ID, updates)
	if err != nil {
		return err
	}
	if matched {
		return nil
	}

	team := &models.LinearTeam{
		OrganizationID: orgID,
		ExternalID:     node.ID,
		Key:            node.Key,
		Name:           node.Name,
		SyncedAt:       syncedAt,
	}
	err = s.repo.CreateTeam(ctx, team)
	if db.IsUniqueViolation(err, "ux_linear_teams_org_external") {
		_, err = s.repo.UpdateTeamByExternalID(ctx, orgID, node.ID, updates)
	}
	return err
}
