// Package sync drives one full ingestion pass per organization: open the
// mailbox, find candidate messages, extract invoice fields from their PDF
// attachments, and persist whatever is new. Runs are sequential and
// cooperative; the batch size cap exists so a time-boxed caller can invoke
// the run repeatedly until it reports zero new records.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/advisync/advisync/internal/config"
	"github.com/advisync/advisync/internal/extract"
	"github.com/advisync/advisync/internal/mailbox"
	"github.com/advisync/advisync/internal/models"
	"github.com/advisync/advisync/internal/pdftext"
	"github.com/advisync/advisync/internal/repository"
	"github.com/advisync/advisync/internal/storage"
)

// ErrNoCredentials is returned when neither the organization settings nor
// the process defaults carry usable mailbox credentials.
var ErrNoCredentials = errors.New("sync: no mailbox credentials configured")

const defaultMaxBatch = 50

// Commission invoices share the mailbox but belong to a different ledger;
// their filename convention is excluded outright.
var excludedAttachmentRe = regexp.MustCompile(`(?i)commission[ _-]?invoice`)

type invoiceStore interface {
	ListExistingIDs(ctx context.Context, orgID string) (map[string]struct{}, error)
	InsertIfAbsent(ctx context.Context, inv *models.Invoice) (bool, error)
}

type settingsSource interface {
	GetByOrg(ctx context.Context, orgID string) (*models.OrgSettings, error)
}

type attachmentStore interface {
	Save(ctx context.Context, id string, data []byte) storage.Result
}

type textExtractor func(data []byte) (string, error)

// Service coordinates ingestion runs.
type Service struct {
	invoices    invoiceStore
	settings    settingsSource
	dialer      mailbox.Dialer
	store       attachmentStore
	extractText textExtractor
	email       config.EmailConfig
	defaults    config.SyncConfig
	logger      *log.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger overrides the run logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func withTextExtractor(fn textExtractor) Option {
	return func(s *Service) {
		if fn != nil {
			s.extractText = fn
		}
	}
}

// NewService wires an ingestion service over its collaborators.
func NewService(
	invoices *repository.InvoiceRepository,
	settings *repository.SettingsRepository,
	dialer mailbox.Dialer,
	store *storage.FallbackStore,
	email config.EmailConfig,
	defaults config.SyncConfig,
	opts ...Option,
) *Service {
	return newService(invoices, settings, dialer, store, email, defaults, opts...)
}

func newService(
	invoices invoiceStore,
	settings settingsSource,
	dialer mailbox.Dialer,
	store attachmentStore,
	email config.EmailConfig,
	defaults config.SyncConfig,
	opts ...Option,
) *Service {
	s := &Service{
		invoices:    invoices,
		settings:    settings,
		dialer:      dialer,
		store:       store,
		extractText: pdftext.Extract,
		email:       email,
		defaults:    defaults,
		logger:      log.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options selects per-run behavior.
type Options struct {
	// FullSync searches the whole mailbox history instead of the lookback
	// window. A first sync (no stored invoices) is a full sync implicitly.
	FullSync bool
}

// InvoiceID derives the stable invoice identifier from the attachment
// filename and the extracted amount. Not collision-proof, but stable and
// reproducible across runs, which is what idempotent re-ingestion needs.
// The scheme is load-bearing for already-stored ids; do not change it.
func InvoiceID(filename string, amount float64) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return "INV-" + base + "-" + strconv.FormatFloat(amount, 'f', -1, 64)
}

// PerformSync executes one ingestion pass for the organization. Only
// configuration and connection failures are returned as errors; per-item
// problems are skips, and cancellation yields a partial success carrying
// whatever was ingested before the stop.
func (s *Service) PerformSync(ctx context.Context, orgID string, opts Options) (*models.SyncResult, error) {
	runID := uuid.NewString()[:8]

	settings, err := s.settings.GetByOrg(ctx, orgID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		settings = &models.OrgSettings{OrgID: orgID}
	}

	creds, err := s.resolveCredentials(settings)
	if err != nil {
		return nil, err
	}

	existing, err := s.invoices.ListExistingIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load existing invoice ids: %w", err)
	}

	if ctx.Err() != nil {
		return cancelledResult(nil), nil
	}

	session, err := s.dialer.Dial(creds)
	if err != nil {
		return nil, fmt.Errorf("mailbox connect: %w", err)
	}
	// The session is owned by this run alone and must die on every exit
	// path, including cancellation and panics further down.
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Printf("[SYNC] run=%s close session: %v", runID, cerr)
		}
	}()

	if err := s.selectFolder(session, runID); err != nil {
		return nil, err
	}

	query := s.buildQuery(settings, opts, len(existing) == 0)
	uids, err := session.Search(query)
	if err != nil {
		return nil, fmt.Errorf("mailbox search: %w", err)
	}
	s.logger.Printf("[SYNC] run=%s org=%s matched %d message(s)", runID, orgID, len(uids))

	if ctx.Err() != nil {
		return cancelledResult(nil), nil
	}

	// Newest first, so an interrupted or capped batch still lands the most
	// recent invoices.
	reverseUIDs(uids)
	maxBatch := s.defaults.MaxBatch
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	if len(uids) > maxBatch {
		uids = uids[:maxBatch]
	}

	messages, err := session.Fetch(uids)
	if err != nil {
		return nil, fmt.Errorf("mailbox fetch: %w", err)
	}

	var added []models.Invoice
	for _, msg := range messages {
		if ctx.Err() != nil {
			return cancelledResult(added), nil
		}
		for _, att := range msg.Attachments {
			if ctx.Err() != nil {
				return cancelledResult(added), nil
			}
			inv, ok := s.processAttachment(ctx, orgID, runID, att, existing)
			if ok {
				added = append(added, *inv)
			}
		}
	}

	message := fmt.Sprintf("Added %d new invoice(s)", len(added))
	if len(added) == 0 {
		message = "No new invoices found"
	}
	return &models.SyncResult{
		Success: true,
		Count:   len(added),
		Data:    added,
		Message: message,
	}, nil
}

// processAttachment runs extraction, dedup, storage and persistence for one
// attachment. All failures here are silent skips by contract.
func (s *Service) processAttachment(ctx context.Context, orgID, runID string, att mailbox.Attachment, seen map[string]struct{}) (*models.Invoice, bool) {
	if excludedAttachmentRe.MatchString(att.Filename) {
		return nil, false
	}

	text, err := s.extractText(att.Data)
	if err != nil {
		s.logger.Printf("[SYNC] run=%s skip %s: pdf parse: %v", runID, att.Filename, err)
		return nil, false
	}

	rec := extract.ParseAt(text, att.Filename, s.now())
	if rec.Amount <= 0 {
		// Nothing extractable from this template; not an error.
		return nil, false
	}

	id := InvoiceID(att.Filename, rec.Amount)
	if _, dup := seen[id]; dup {
		return nil, false
	}

	stored := s.store.Save(ctx, id, att.Data)

	inv := &models.Invoice{
		ID:               id,
		OrgID:            orgID,
		Date:             rec.Date,
		ServiceDateRange: rec.ServicePeriod,
		Location:         rec.Location,
		Stall:            rec.Stall,
		Amount:           rec.Amount,
		Status:           models.StatusProcessed,
		SyncedAt:         s.now(),
	}
	if stored.Stored {
		path := stored.Path
		inv.PDFPath = &path
	}

	inserted, err := s.invoices.InsertIfAbsent(ctx, inv)
	if err != nil {
		s.logger.Printf("[SYNC] run=%s skip %s: insert: %v", runID, att.Filename, err)
		return nil, false
	}
	// Mark the id immediately so a duplicate attachment later in the same
	// run is skipped without touching the database.
	seen[id] = struct{}{}
	if !inserted {
		return nil, false
	}
	return inv, true
}

// resolveCredentials prefers organization overrides, then process defaults,
// and fails fast on anything that still looks like an unfilled placeholder.
func (s *Service) resolveCredentials(settings *models.OrgSettings) (mailbox.Credentials, error) {
	creds := mailbox.Credentials{
		Host:     s.email.Host,
		Port:     s.email.Port,
		Username: s.email.User,
		Password: s.email.Password,
		TLS:      s.email.TLS,
	}
	if settings.EmailUser != "" && settings.EmailPassword != "" {
		creds.Username = settings.EmailUser
		creds.Password = settings.EmailPassword
	}
	if creds.Host == "" || creds.Username == "" || creds.Password == "" {
		return mailbox.Credentials{}, ErrNoCredentials
	}
	if isPlaceholder(creds.Username) || isPlaceholder(creds.Password) {
		return mailbox.Credentials{}, fmt.Errorf("%w: credentials look like unfilled placeholders", ErrNoCredentials)
	}
	return creds, nil
}

func (s *Service) selectFolder(session mailbox.Session, runID string) error {
	folder := s.email.Folder
	if folder != "" && folder != "INBOX" {
		if err := session.Select(folder); err == nil {
			return nil
		}
		// The dedicated folder may simply not exist on this mailbox.
		s.logger.Printf("[SYNC] run=%s folder %q unavailable, using INBOX", runID, folder)
	}
	if err := session.Select("INBOX"); err != nil {
		return fmt.Errorf("mailbox select: %w", err)
	}
	return nil
}

func (s *Service) buildQuery(settings *models.OrgSettings, opts Options, firstSync bool) mailbox.SearchQuery {
	term := settings.EmailSearchTerm
	if term == "" {
		term = s.defaults.SearchTerm
	}
	query := mailbox.SearchQuery{Text: term}
	if opts.FullSync || firstSync {
		return query
	}
	lookback := settings.SyncLookbackDays
	if lookback <= 0 {
		lookback = s.defaults.LookbackDays
	}
	query.Since = s.now().AddDate(0, 0, -lookback)
	return query
}

func cancelledResult(added []models.Invoice) *models.SyncResult {
	return &models.SyncResult{
		Success: true,
		Count:   len(added),
		Data:    added,
		Message: fmt.Sprintf("Sync cancelled; %d invoice(s) ingested before stopping", len(added)),
	}
}

func reverseUIDs(uids []uint32) {
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
}

var placeholderMarkers = []string{"your-email", "your_password", "example.com", "changeme"}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
