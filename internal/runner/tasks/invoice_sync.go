package tasks

import (
	"context"
	"log"
	"time"

	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/sync"
)

// maxBatchRounds bounds how many capped batches one tick will chase per
// organization before giving up until the next tick.
const maxBatchRounds = 20

type orgLister interface {
	ListOrgIDs(ctx context.Context) ([]string, error)
}

type syncer interface {
	PerformSync(ctx context.Context, orgID string, opts sync.Options) (*models.SyncResult, error)
}

// InvoiceSyncTask runs the ingestion pipeline for every organization on a
// schedule. Organizations are visited strictly one after another; a failure
// in one is recorded and must not keep the rest from being attempted.
type InvoiceSyncTask struct {
	orgs     orgLister
	service  syncer
	schedule string
	logger   *log.Logger
}

// NewInvoiceSyncTask builds the scheduled sync driver.
func NewInvoiceSyncTask(orgs orgLister, service syncer, schedule string) *InvoiceSyncTask {
	return &InvoiceSyncTask{
		orgs:     orgs,
		service:  service,
		schedule: schedule,
		logger:   log.New(log.Writer(), "[INVOICE-SYNC] ", log.LstdFlags),
	}
}

// Name returns the task name.
func (t *InvoiceSyncTask) Name() string { return "invoice-sync" }

// Schedule returns the cron schedule for the task.
func (t *InvoiceSyncTask) Schedule() string { return t.schedule }

// Timeout bounds one full pass over all organizations.
func (t *InvoiceSyncTask) Timeout() time.Duration { return 10 * time.Minute }

// Run syncs each organization in turn. Because every run is capped to a
// bounded batch, the tick keeps calling until a run reports zero new
// records, which signals mailbox exhaustion for that organization.
func (t *InvoiceSyncTask) Run(ctx context.Context) error {
	orgIDs, err := t.orgs.ListOrgIDs(ctx)
	if err != nil {
		return err
	}

	for _, orgID := range orgIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.syncOrg(ctx, orgID)
	}
	return nil
}

func (t *InvoiceSyncTask) syncOrg(ctx context.Context, orgID string) {
	total := 0
	for round := 0; round < maxBatchRounds; round++ {
		result, err := t.service.PerformSync(ctx, orgID, sync.Options{})
		if err != nil {
			t.logger.Printf("org %s: sync failed: %v", orgID, err)
			return
		}
		total += result.Count
		if result.Count == 0 {
			break
		}
	}
	if total > 0 {
		t.logger.Printf("org %s: ingested %d invoice(s)", orgID, total)
	}
}
