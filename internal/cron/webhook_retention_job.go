package cron

import (
	"context"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const defaultWebhookRetentionDays = 30

type webhookEventPruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type WebhookRetentionJobParams struct {
	Logger    *logger.Logger
	Repo      webhookEventPruner
	Retention int
	Now       func() time.Time
}

// NewWebhookRetentionJob prunes settled webhook_events rows past the
// retention window. Pending rows are never touched.
func NewWebhookRetentionJob(params WebhookRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhooks repo required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultWebhookRetentionDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &webhookRetentionJob{
		logg:      params.Logger,
		repo:      params.Repo,
		retention: retention,
		now:       now,
	}, nil
}

type webhookRetentionJob struct {
	logg      *logger.Logger
	repo      webhookEventPruner
	retention int
	now       func() time.Time
}

func (j *webhookRetentionJob) Name() string { return "webhook-event-retention" }

func (j *webhookRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune webhook events")
	}
	fields := map[string]any{"cutoff": cutoff, "retention_days": j.retention, "rows_deleted": deleted}
	j.logg.Info(j.logg.WithFields(ctx, fields), "webhook event retention complete")
	return nil
}
