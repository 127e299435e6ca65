package mailbox

import (
	"context"
	"log/slog"
	"sync"
)

// Connector owns the single mailbox session. It reuses a live session,
// replaces a dead one, and serializes access so a session is never shared
// by two fetch cycles.
type Connector struct {
	mu      sync.Mutex
	dialer  Dialer
	session Session
	logger  *slog.Logger
}

// NewConnector creates a Connector that opens sessions with dialer.
func NewConnector(dialer Dialer, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{dialer: dialer, logger: logger}
}

// EnsureConnected returns a usable session, dialing at most once.
func (c *Connector) EnsureConnected(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnectedLocked(ctx)
}

// WithSession runs fn with a live session while holding the connector lock.
func (c *Connector) WithSession(ctx context.Context, fn func(Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, err := c.ensureConnectedLocked(ctx)
	if err != nil {
		return err
	}
	return fn(session)
}

func (c *Connector) ensureConnectedLocked(ctx context.Context) (Session, error) {
	if c.session != nil {
		if c.session.Connected(ctx) {
			return c.session, nil
		}
		c.logger.Info("mailbox session lost, reconnecting")
		_ = c.session.Logout(ctx)
		c.session = nil
	}

	session, err := c.dialer.Dial(ctx)
	if err != nil {
		if !IsConnectionError(err) {
			err = &ConnectionError{Err: err}
		}
		c.logger.Warn("mailbox connect failed", "error", err)
		return nil, err
	}

	c.session = session
	return session, nil
}

// Close logs out the held session, if any. The session bounds LOGOUT by
// its own I/O timeout.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Logout(context.Background())
	c.session = nil
	return err
}
