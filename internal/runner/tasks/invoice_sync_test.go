package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/sync"
)

type fakeOrgLister struct {
	orgIDs []string
	err    error
}

func (f *fakeOrgLister) ListOrgIDs(_ context.Context) ([]string, error) {
	return f.orgIDs, f.err
}

type fakeSyncer struct {
	// counts queues the Count of each successive run per org; once a queue
	// is drained the org reports zero new records.
	counts map[string][]int
	errs   map[string]error
	calls  map[string]int
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{
		counts: make(map[string][]int),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeSyncer) PerformSync(_ context.Context, orgID string, _ sync.Options) (*models.SyncResult, error) {
	f.calls[orgID]++
	if err := f.errs[orgID]; err != nil {
		return nil, err
	}
	queue := f.counts[orgID]
	if len(queue) == 0 {
		return &models.SyncResult{Success: true, Count: 0}, nil
	}
	count := queue[0]
	f.counts[orgID] = queue[1:]
	return &models.SyncResult{Success: true, Count: count}, nil
}

func TestRunDrainsEachOrgUntilExhausted(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.counts["org-1"] = []int{10, 10, 3}
	task := NewInvoiceSyncTask(&fakeOrgLister{orgIDs: []string{"org-1"}}, syncer, "@every 30m")

	require.NoError(t, task.Run(context.Background()))
	// Three full batches plus the final zero-count probe.
	require.Equal(t, 4, syncer.calls["org-1"])
}

func TestRunOrgFailureDoesNotStopOthers(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.errs["org-1"] = errors.New("mailbox down")
	syncer.counts["org-2"] = []int{2}
	task := NewInvoiceSyncTask(&fakeOrgLister{orgIDs: []string{"org-1", "org-2"}}, syncer, "@every 30m")

	require.NoError(t, task.Run(context.Background()))
	require.Equal(t, 1, syncer.calls["org-1"])
	require.Equal(t, 2, syncer.calls["org-2"])
}

func TestRunListErrorPropagates(t *testing.T) {
	task := NewInvoiceSyncTask(&fakeOrgLister{err: errors.New("db down")}, newFakeSyncer(), "@every 30m")
	require.ErrorContains(t, task.Run(context.Background()), "db down")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	syncer := newFakeSyncer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task := NewInvoiceSyncTask(&fakeOrgLister{orgIDs: []string{"org-1"}}, syncer, "@every 30m")

	require.Error(t, task.Run(ctx))
	require.Zero(t, syncer.calls["org-1"])
}

func TestRunBoundsBatchRounds(t *testing.T) {
	syncer := newFakeSyncer()
	rounds := make([]int, maxBatchRounds+5)
	for i := range rounds {
		rounds[i] = 1
	}
	syncer.counts["org-1"] = rounds
	task := NewInvoiceSyncTask(&fakeOrgLister{orgIDs: []string{"org-1"}}, syncer, "@every 30m")

	require.NoError(t, task.Run(context.Background()))
	require.Equal(t, maxBatchRounds, syncer.calls["org-1"])
}

func TestTaskMetadata(t *testing.T) {
	task := NewInvoiceSyncTask(&fakeOrgLister{}, newFakeSyncer(), "0 */30 * * * *")
	require.Equal(t, "invoice-sync", task.Name())
	require.Equal(t, "0 */30 * * * *", task.Schedule())
	require.NotZero(t, task.Timeout())
}
