package models

import "time"

// OrgSettings holds the per-organization sync configuration. Credential
// fields are optional overrides; when empty the process-wide defaults from
// the config file apply.
type OrgSettings struct {
	OrgID            string    `json:"org_id"`
	EmailSearchTerm  string    `json:"email_search_term"`
	SyncLookbackDays int       `json:"sync_lookback_days"`
	EmailUser        string    `json:"email_user,omitempty"`
	EmailPassword    string    `json:"-"`
	UpdatedAt        time.Time `json:"updated_at"`
}
