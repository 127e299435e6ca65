package mailbox

import (
	"context"
	"time"
)

// Envelope holds the parsed envelope data from an IMAP message. Address
// lists are already formatted as display strings; a nil or empty list
// means the server reported no addresses.
type Envelope struct {
	MessageID string
	Subject   string
	From      []string
	To        []string
	Date      time.Time
}

// RawMessage is one mailbox item as delivered by the protocol client,
// before normalization.
type RawMessage struct {
	// SeqNum is the 1-based position of the message in the folder.
	SeqNum uint32

	// UID is the server-assigned unique identifier, zero when unknown.
	UID uint32

	// Envelope is the server-parsed envelope, nil when not fetched.
	Envelope *Envelope

	// Content is the full RFC 5322 message (headers and body).
	Content []byte
}

// Folder is an opened, read-only mailbox folder. Messages are addressed
// by their 1-based position in protocol listing order.
type Folder interface {
	// Name returns the folder name as opened.
	Name() string

	// Count returns the number of messages in the folder.
	Count() uint32

	// Fetch returns the messages at positions first..last inclusive, in
	// ascending position order.
	Fetch(ctx context.Context, first, last uint32) ([]RawMessage, error)

	// Close releases the folder without expunging or changing flags.
	Close(ctx context.Context) error
}

// Session is a logged-in connection to the mail store.
type Session interface {
	// Connected reports whether the session is still usable.
	Connected(ctx context.Context) bool

	// OpenReadOnly opens the named folder without write access.
	OpenReadOnly(ctx context.Context, name string) (Folder, error)

	// Logout ends the session and closes the connection.
	Logout(ctx context.Context) error
}

// Dialer establishes new sessions with the mail store.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Session, error) {
	return f(ctx)
}
