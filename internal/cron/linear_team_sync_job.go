package cron

import (
	"context"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

type teamSyncer interface {
	SyncAll(ctx context.Context) error
}

// NewLinearTeamSyncJob wraps the linearsync team syncer as a cron job. The
// syncer debounces per workspace, so the job can run on every cycle.
func NewLinearTeamSyncJob(syncer teamSyncer) (Job, error) {
	if syncer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "team syncer required")
	}
	return &linearTeamSyncJob{syncer: syncer}, nil
}

type linearTeamSyncJob struct {
	syncer teamSyncer
}

func (j *linearTeamSyncJob) Name() string { return "linear-team-sync" }

func (j *linearTeamSyncJob) Run(ctx context.Context) error {
	return j.syncer.SyncAll(ctx)
}
