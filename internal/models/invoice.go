package models

import "time"

// Invoice lifecycle states. New records always start as Processed (or
// Pending when the caller requests it); Paid is set later by user action.
const (
	StatusPending   = "Pending"
	StatusProcessed = "Processed"
	StatusPaid      = "Paid"
)

// Invoice is one payment advice extracted from a mailbox attachment.
// The ID is derived from the attachment filename and the extracted amount,
// which makes re-ingestion of the same attachment idempotent.
type Invoice struct {
	ID               string    `json:"id"`
	OrgID            string    `json:"org_id"`
	Date             string    `json:"date"`
	ServiceDateRange string    `json:"service_date_range,omitempty"`
	Location         string    `json:"location"`
	Stall            string    `json:"stall"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"status"`
	PDFPath          *string   `json:"pdf_path,omitempty"`
	SyncedAt         time.Time `json:"synced_at"`
}

// SyncResult aggregates the outcome of one ingestion run.
// Count == 0 with Success == true signals batch exhaustion: callers that
// invoke sync repeatedly should stop once they see it.
type SyncResult struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Data    []Invoice `json:"data"`
	Message string    `json:"message"`
}
