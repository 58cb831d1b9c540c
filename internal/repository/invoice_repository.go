package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/advisync/advisync/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// ListExistingIDs returns every invoice id already stored for the
// organization. The sync run seeds its in-memory dedup set from this once
// at start.
func (r *InvoiceRepository) ListExistingIDs(ctx context.Context, orgID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM invoices WHERE org_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invoice id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoice ids: %w", err)
	}
	return ids, nil
}

// InsertIfAbsent writes the invoice unless its id already exists for the
// organization. The conflict target is the primary key, so a re-ingested
// attachment is a no-op regardless of the in-memory dedup set. Returns
// whether a row was actually inserted.
func (r *InvoiceRepository) InsertIfAbsent(ctx context.Context, inv *models.Invoice) (bool, error) {
	query := `
		INSERT INTO invoices (
			id, org_id, date, service_date_range, location, stall,
			amount, status, pdf_path, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (org_id, id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		inv.ID,
		inv.OrgID,
		inv.Date,
		inv.ServiceDateRange,
		inv.Location,
		inv.Stall,
		inv.Amount,
		inv.Status,
		inv.PDFPath,
		inv.SyncedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected > 0, nil
}

// ListFilter narrows List results. Zero fields are ignored.
type ListFilter struct {
	Status   string
	Location string
	Month    string // YYYY-MM
	Limit    int
	Offset   int
}

func (r *InvoiceRepository) List(ctx context.Context, orgID string, filter ListFilter) ([]models.Invoice, error) {
	query := `
		SELECT id, org_id, date, service_date_range, location, stall,
			amount, status, pdf_path, synced_at
		FROM invoices
		WHERE org_id = $1`
	args := []interface{}{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Location != "" {
		args = append(args, filter.Location)
		query += fmt.Sprintf(" AND location = $%d", len(args))
	}
	if filter.Month != "" {
		args = append(args, filter.Month+"%")
		query += fmt.Sprintf(" AND date LIKE $%d", len(args))
	}
	query += " ORDER BY date DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoices: %w", err)
	}
	return invoices, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, orgID, id string) (*models.Invoice, error) {
	query := `
		SELECT id, org_id, date, service_date_range, location, stall,
			amount, status, pdf_path, synced_at
		FROM invoices
		WHERE org_id = $1 AND id = $2`

	inv := &models.Invoice{}
	row := r.db.QueryRowContext(ctx, query, orgID, id)
	if err := scanInvoice(row, inv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

// UpdateStatus transitions an invoice's lifecycle state.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, orgID, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET status = $1 WHERE org_id = $2 AND id = $3`,
		status, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// StatsRow is one aggregation bucket for the dashboard charts.
type StatsRow struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// StatsByLocation aggregates invoice count and amount per classified site.
func (r *InvoiceRepository) StatsByLocation(ctx context.Context, orgID string) ([]StatsRow, error) {
	return r.stats(ctx, orgID, `
		SELECT location, COUNT(*), COALESCE(SUM(amount), 0)
		FROM invoices WHERE org_id = $1
		GROUP BY location ORDER BY 3 DESC`)
}

// StatsByMonth aggregates invoice count and amount per calendar month.
func (r *InvoiceRepository) StatsByMonth(ctx context.Context, orgID string) ([]StatsRow, error) {
	return r.stats(ctx, orgID, `
		SELECT substring(date from 1 for 7), COUNT(*), COALESCE(SUM(amount), 0)
		FROM invoices WHERE org_id = $1
		GROUP BY 1 ORDER BY 1`)
}

func (r *InvoiceRepository) stats(ctx context.Context, orgID, query string) ([]StatsRow, error) {
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}
	defer rows.Close()

	var out []StatsRow
	for rows.Next() {
		var row StatsRow
		if err := rows.Scan(&row.Key, &row.Count, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner, inv *models.Invoice) error {
	var serviceRange sql.NullString
	var pdfPath sql.NullString
	err := row.Scan(
		&inv.ID,
		&inv.OrgID,
		&inv.Date,
		&serviceRange,
		&inv.Location,
		&inv.Stall,
		&inv.Amount,
		&inv.Status,
		&pdfPath,
		&inv.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan invoice: %w", err)
	}
	inv.ServiceDateRange = strings.TrimSpace(serviceRange.String)
	if pdfPath.Valid {
		inv.PDFPath = &pdfPath.String
	}
	return nil
}
