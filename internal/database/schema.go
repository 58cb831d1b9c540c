package database

import (
	"database/sql"
	"fmt"
)

// Invoice ids are derived from attachment filename plus amount, so the
// composite primary key is also the idempotence guarantee for re-ingestion.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		date TEXT NOT NULL,
		service_date_range TEXT,
		location TEXT NOT NULL DEFAULT 'Other',
		stall TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL DEFAULT 'Processed',
		pdf_path TEXT,
		synced_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (org_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_org_status ON invoices (org_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_org_date ON invoices (org_id, date)`,
	`CREATE TABLE IF NOT EXISTS org_settings (
		org_id TEXT PRIMARY KEY,
		email_search_term TEXT NOT NULL DEFAULT '',
		sync_lookback_days INT NOT NULL DEFAULT 30,
		email_user TEXT,
		email_password TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the application tables when they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
