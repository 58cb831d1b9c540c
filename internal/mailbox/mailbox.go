package mailbox

import (
	"time"
)

// Credentials carries the minimal set of fields needed to open a mailbox.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	TLS      bool
}

// SearchQuery selects candidate messages. A zero Since searches the full
// mailbox history.
type SearchQuery struct {
	Text  string
	Since time.Time
}

// Attachment is one PDF part of a fetched message.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is a fetched mailbox message reduced to what the ingestion
// pipeline consumes: its PDF attachments.
type Message struct {
	UID         uint32
	ReceivedAt  time.Time
	Attachments []Attachment
}

// Session is one open mailbox connection. Sessions are single-use and
// exclusively owned by one sync run; Close must be called on every exit
// path.
type Session interface {
	// Select opens the named folder. Callers fall back to INBOX when the
	// preferred folder does not exist.
	Select(folder string) error

	// Search returns matching message UIDs in mailbox order.
	Search(q SearchQuery) ([]uint32, error)

	// Fetch retrieves the given messages with their PDF attachments parsed.
	Fetch(uids []uint32) ([]Message, error)

	Close() error
}

// Dialer opens authenticated mailbox sessions.
type Dialer interface {
	Dial(creds Credentials) (Session, error)
}
