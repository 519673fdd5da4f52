package models

import (
	"time"

	"github.com/google/uuid"
)

// SlackIntegration links an organization to a Slack workspace.
type SlackIntegration struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index"`
	TeamID         string     `gorm:"column:team_id;type:text;not null;uniqueIndex:ux_slack_integrations_team_id"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the workspace link is still usable.
func (s SlackIntegration) Active() bool {
	return s.RevokedAt == nil
}

// LinearIntegration links an organization to a Linear workspace. WorkspaceID
// is Linear's organizationId, the value inbound payloads are scoped by.
// TeamsSyncedAt is the debounce stamp for the team sync job: only the first
// page of a sync run updates it.
type LinearIntegration struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_linear_integrations_org"`
	WorkspaceID    string     `gorm:"column:workspace_id;type:text;not null;uniqueIndex:ux_linear_integrations_workspace"`
	TeamsSyncedAt  *time.Time `gorm:"column:teams_synced_at"`
	RevokedAt      *time.Time `gorm:"column:revoked_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Active reports whether the workspace link is still usable.
func (l LinearIntegration) Active() bool {
	return l.RevokedAt == nil
}

// LinearTeam mirrors a team fetched from the Linear API. SyncedAt marks the
// run that last saw the team; rows older than a completed sync start are
// stale and get drained.
type LinearTeam struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_linear_teams_org_external"`
	ExternalID     string    `gorm:"column:external_id;type:text;not null;uniqueIndex:ux_linear_teams_org_external"`
	Key            string    `gorm:"column:key;type:text;not null"`
	Name           string    `gorm:"column:name;type:text;not null"`
	SyncedAt       time.Time `gorm:"column:synced_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// LinearIssue mirrors an issue pushed to us by Linear webhooks, upserted by
// the provider's id so duplicate and out-of-order deliveries converge.
type LinearIssue struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:ux_linear_issues_org_external"`
	ExternalID     string     `gorm:"column:external_id;type:text;not null;uniqueIndex:ux_linear_issues_org_external"`
	Identifier     string     `gorm:"column:identifier;type:text;not null"`
	Title          string     `gorm:"column:title;type:text;not null"`
	State          string     `gorm:"column:state;type:text;not null"`
	RemovedAt      *time.Time `gorm:"column:removed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
