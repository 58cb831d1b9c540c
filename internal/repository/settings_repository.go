package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/advisync/advisync/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByOrg loads the organization's sync settings. ErrNotFound means the
// organization has never saved any; callers fall back to config defaults.
func (r *SettingsRepository) GetByOrg(ctx context.Context, orgID string) (*models.OrgSettings, error) {
	query := `
		SELECT org_id, email_search_term, sync_lookback_days,
			email_user, email_password, updated_at
		FROM org_settings
		WHERE org_id = $1`

	s := &models.OrgSettings{}
	var user, password sql.NullString
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(
		&s.OrgID,
		&s.EmailSearchTerm,
		&s.SyncLookbackDays,
		&user,
		&password,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get org settings: %w", err)
	}
	s.EmailUser = user.String
	s.EmailPassword = password.String
	return s, nil
}

// Upsert saves the organization's sync settings, replacing any prior row.
func (r *SettingsRepository) Upsert(ctx context.Context, s *models.OrgSettings) error {
	query := `
		INSERT INTO org_settings (
			org_id, email_search_term, sync_lookback_days,
			email_user, email_password, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (org_id) DO UPDATE SET
			email_search_term = EXCLUDED.email_search_term,
			sync_lookback_days = EXCLUDED.sync_lookback_days,
			email_user = EXCLUDED.email_user,
			email_password = EXCLUDED.email_password,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		s.OrgID,
		s.EmailSearchTerm,
		s.SyncLookbackDays,
		nullable(s.EmailUser),
		nullable(s.EmailPassword),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert org settings: %w", err)
	}
	return nil
}

// ListOrgIDs returns every organization that has either settings or
// invoices, for the scheduled sync driver.
func (r *SettingsRepository) ListOrgIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT org_id FROM org_settings
		UNION
		SELECT DISTINCT org_id FROM invoices
		ORDER BY 1`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list org ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan org id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read org ids: %w", err)
	}
	return ids, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
