package mailbox

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

type imapClient interface {
	Login(username, password string) commandWaiter
	Logout() commandWaiter
	Close() error
	Select(mailbox string, options *imap.SelectOptions) selectWaiter
	UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter
	Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter
}

type commandWaiter interface{ Wait() error }
type selectWaiter interface {
	Wait() (*imap.SelectData, error)
}
type searchWaiter interface {
	Wait() (*imap.SearchData, error)
}
type fetchWaiter interface {
	Collect() ([]*imapclient.FetchMessageBuffer, error)
	Close() error
}

// IMAPDialer opens IMAP mailbox sessions.
type IMAPDialer struct {
	dialTimeout time.Duration
	now         func() time.Time
	logger      *log.Logger
	newClient   func(Credentials) (imapClient, error)
}

// IMAPDialerOption customizes dialer behavior.
type IMAPDialerOption func(*IMAPDialer)

// NewIMAPDialer returns an IMAP dialer ready for sync runs.
func NewIMAPDialer(opts ...IMAPDialerOption) *IMAPDialer {
	d := &IMAPDialer{
		dialTimeout: 10 * time.Second,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      log.Default(),
	}
	d.newClient = d.defaultClientFactory
	for _, opt := range opts {
		opt(d)
	}
	if d.newClient == nil {
		d.newClient = d.defaultClientFactory
	}
	return d
}

// WithIMAPDialTimeout overrides the socket dial timeout.
func WithIMAPDialTimeout(timeout time.Duration) IMAPDialerOption {
	return func(d *IMAPDialer) {
		if timeout > 0 {
			d.dialTimeout = timeout
		}
	}
}

// WithIMAPLogger overrides the logger used for connection diagnostics.
func WithIMAPLogger(logger *log.Logger) IMAPDialerOption {
	return func(d *IMAPDialer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithIMAPClock overrides the wall clock, primarily for tests.
func WithIMAPClock(now func() time.Time) IMAPDialerOption {
	return func(d *IMAPDialer) {
		if now != nil {
			d.now = now
		}
	}
}

func withIMAPClientFactory(factory func(Credentials) (imapClient, error)) IMAPDialerOption {
	return func(d *IMAPDialer) {
		d.newClient = factory
	}
}

// Dial connects and authenticates against the configured IMAP server.
func (d *IMAPDialer) Dial(creds Credentials) (Session, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}
	client, err := d.newClient(creds)
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}
	if err := client.Login(creds.Username, creds.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("imap auth: %w", err)
	}
	return &imapSession{client: client, now: d.now, logger: d.logger}, nil
}

func (d *IMAPDialer) defaultClientFactory(creds Credentials) (imapClient, error) {
	port := creds.Port
	if port == 0 {
		if creds.TLS {
			port = 993
		} else {
			port = 143
		}
	}
	opts := &imapclient.Options{Dialer: &net.Dialer{Timeout: d.dialTimeout}}
	addr := fmt.Sprintf("%s:%d", creds.Host, port)
	var client *imapclient.Client
	var err error
	if creds.TLS {
		client, err = imapclient.DialTLS(addr, opts)
	} else {
		client, err = imapclient.DialInsecure(addr, opts)
	}
	if err != nil {
		return nil, err
	}
	return &imapClientWrapper{Client: client}, nil
}

func validateCredentials(creds Credentials) error {
	if creds.Host == "" {
		return errors.New("imap credentials missing host")
	}
	if creds.Username == "" {
		return errors.New("imap credentials missing username")
	}
	if creds.Password == "" {
		return errors.New("imap credentials missing password")
	}
	return nil
}

type imapSession struct {
	client imapClient
	now    func() time.Time
	logger *log.Logger
	closed bool
}

func (s *imapSession) Select(folder string) error {
	if folder == "" {
		folder = "INBOX"
	}
	if _, err := s.client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("imap select %s: %w", folder, err)
	}
	return nil
}

func (s *imapSession) Search(q SearchQuery) ([]uint32, error) {
	criteria := &imap.SearchCriteria{}
	if q.Text != "" {
		criteria.Text = []string{q.Text}
	}
	if !q.Since.IsZero() {
		criteria.Since = q.Since
	}
	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := data.AllUIDs()
	out := make([]uint32, len(uids))
	for i, uid := range uids {
		out[i] = uint32(uid)
	}
	return out, nil
}

func (s *imapSession) Fetch(uids []uint32) ([]Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	imapUIDs := make([]imap.UID, len(uids))
	for i, uid := range uids {
		imapUIDs[i] = imap.UID(uid)
	}
	uidSet := imap.UIDSetNum(imapUIDs...)
	fetchOpts := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{}},
	}
	buffers, err := s.client.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	messages := make([]Message, 0, len(buffers))
	for _, buf := range buffers {
		body := buf.FindBodySection(&imap.FetchItemBodySection{})
		if body == nil {
			continue
		}
		received := buf.InternalDate
		if received.IsZero() {
			received = s.now()
		}
		attachments, err := parsePDFAttachments(body)
		if err != nil {
			// A single unparseable message should not sink the whole fetch.
			s.logger.Printf("mailbox: parse message uid=%d failed: %v", buf.UID, err)
			continue
		}
		messages = append(messages, Message{
			UID:         uint32(buf.UID),
			ReceivedAt:  received,
			Attachments: attachments,
		})
	}
	return messages, nil
}

func (s *imapSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.client.Logout().Wait(); err != nil {
		// Logout failures are not actionable; make sure the socket dies.
		_ = s.client.Close()
		return nil
	}
	return s.client.Close()
}

type imapClientWrapper struct{ *imapclient.Client }

func (w *imapClientWrapper) Login(username, password string) commandWaiter {
	return w.Client.Login(username, password)
}
func (w *imapClientWrapper) Logout() commandWaiter { return w.Client.Logout() }
func (w *imapClientWrapper) Select(mailbox string, options *imap.SelectOptions) selectWaiter {
	return w.Client.Select(mailbox, options)
}
func (w *imapClientWrapper) UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter {
	return w.Client.UIDSearch(criteria, options)
}
func (w *imapClientWrapper) Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter {
	return w.Client.Fetch(numSet, options)
}
