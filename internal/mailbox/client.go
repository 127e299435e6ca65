package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/inboxdigest/internal/model"
)

// Fallbacks for unset timeouts, matching the configuration defaults.
const (
	defaultConnectTimeout = 5 * time.Second
	defaultIOTimeout      = 5 * time.Second
)

// IMAPDialer opens authenticated IMAP sessions using go-imap v2.
type IMAPDialer struct {
	cfg    model.MailboxConfig
	logger *slog.Logger
}

// NewIMAPDialer creates a dialer for the given mailbox configuration.
// Non-positive timeouts fall back to the defaults so no IMAP step is
// ever unbounded.
func NewIMAPDialer(cfg model.MailboxConfig, logger *slog.Logger) *IMAPDialer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = defaultIOTimeout
	}
	return &IMAPDialer{cfg: cfg, logger: logger}
}

// Addr returns the host:port the dialer connects to.
func (d *IMAPDialer) Addr() string {
	return net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
}

// Dial connects, negotiates TLS, and logs in. The whole handshake, from
// TCP connect to the LOGIN reply, is bounded by ConnectTimeout+IOTimeout.
// Failures are reported as *ConnectionError.
func (d *IMAPDialer) Dial(ctx context.Context) (Session, error) {
	addr := d.Addr()

	if err := d.checkSettings(); err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout+d.cfg.IOTimeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("dial: %w", err)}
	}

	// Greeting, STARTTLS, the TLS handshake, and LOGIN all block on conn;
	// closing it is the only way to interrupt them.
	stopGuard := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	client, err := d.handshake(conn)
	if !stopGuard() {
		if client != nil {
			_ = client.Close()
		}
		return nil, &ConnectionError{Addr: addr, Err: fmt.Errorf("handshake: %w", ctx.Err())}
	}
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	d.logger.Debug("imap session established",
		"address", addr,
		"tls", d.cfg.TLS,
	)

	return &imapSession{
		client:    client,
		ioTimeout: d.cfg.IOTimeout,
		logger:    d.logger,
	}, nil
}

// handshake negotiates TLS on conn and logs in. On failure the connection
// is closed.
func (d *IMAPDialer) handshake(conn net.Conn) (*imapclient.Client, error) {
	tlsConfig := &tls.Config{
		ServerName:         d.cfg.Host,
		InsecureSkipVerify: d.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for self-signed test servers
	}
	options := &imapclient.Options{TLSConfig: tlsConfig}

	var client *imapclient.Client
	if d.cfg.TLS {
		client = imapclient.New(tls.Client(conn, tlsConfig), options)
	} else {
		var err error
		client, err = imapclient.NewStartTLS(conn, options)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}

	if err := client.Login(d.cfg.Username, d.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("login as %s: %w", d.cfg.Username, err)
	}
	return client, nil
}

func (d *IMAPDialer) checkSettings() error {
	var missing []string
	if d.cfg.Host == "" {
		missing = append(missing, "host")
	}
	if d.cfg.Port <= 0 {
		missing = append(missing, "port")
	}
	if d.cfg.Username == "" {
		missing = append(missing, "username")
	}
	if d.cfg.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing mailbox settings: %v", missing)
	}
	return nil
}

// withTimeout runs op and force-closes the client when ctx is cancelled or
// timeout elapses first. A zero timeout only honours ctx; IMAPDialer never
// hands out sessions with one.
func withTimeout(ctx context.Context, client *imapclient.Client, timeout time.Duration, op func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	defer stopClose()

	err := op()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

type imapSession struct {
	client    *imapclient.Client
	ioTimeout time.Duration
	logger    *slog.Logger
}

// Connected reports false once the server or the client dropped the
// connection, or when a NOOP round trip fails.
func (s *imapSession) Connected(ctx context.Context) bool {
	if s.client.State() == imap.ConnStateLogout {
		return false
	}

	err := withTimeout(ctx, s.client, s.ioTimeout, func() error {
		return s.client.Noop().Wait()
	})
	if err != nil {
		s.logger.Debug("imap session check failed", "error", err)
		return false
	}
	return true
}

func (s *imapSession) OpenReadOnly(ctx context.Context, name string) (Folder, error) {
	var data *imap.SelectData
	err := withTimeout(ctx, s.client, s.ioTimeout, func() error {
		var err error
		data, err = s.client.Select(name, &imap.SelectOptions{ReadOnly: true}).Wait()
		return err
	})
	if err != nil {
		return nil, &FolderError{Folder: name, Op: "open", Err: err}
	}

	return &imapFolder{
		session: s,
		name:    name,
		count:   data.NumMessages,
	}, nil
}

// Logout sends LOGOUT, bounded by the I/O timeout, and closes the
// connection either way.
func (s *imapSession) Logout(ctx context.Context) error {
	logoutErr := withTimeout(ctx, s.client, s.ioTimeout, func() error {
		return s.client.Logout().Wait()
	})
	closeErr := s.client.Close()
	return errors.Join(logoutErr, closeErr)
}

type imapFolder struct {
	session *imapSession
	name    string
	count   uint32
}

func (f *imapFolder) Name() string  { return f.name }
func (f *imapFolder) Count() uint32 { return f.count }

// Fetch retrieves envelope and full content (without setting \Seen) for
// positions first..last.
func (f *imapFolder) Fetch(ctx context.Context, first, last uint32) ([]RawMessage, error) {
	if first == 0 || last < first {
		return nil, &FolderError{
			Folder: f.name,
			Op:     "fetch",
			Err:    fmt.Errorf("invalid range %d:%d", first, last),
		}
	}

	var set imap.SeqSet
	set.AddRange(first, last)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	var buffers []*imapclient.FetchMessageBuffer
	err := withTimeout(ctx, f.session.client, f.session.ioTimeout, func() error {
		var err error
		buffers, err = f.session.client.Fetch(set, fetchOpts).Collect()
		return err
	})
	if err != nil {
		return nil, &FolderError{Folder: f.name, Op: "fetch", Err: err}
	}

	sort.Slice(buffers, func(i, j int) bool {
		return buffers[i].SeqNum < buffers[j].SeqNum
	})

	messages := make([]RawMessage, 0, len(buffers))
	for _, buf := range buffers {
		messages = append(messages, RawMessage{
			SeqNum:   buf.SeqNum,
			UID:      uint32(buf.UID),
			Envelope: envelopeFromBuffer(buf),
			Content:  buf.FindBodySection(bodySection),
		})
	}
	return messages, nil
}

// Close leaves the selected state without expunging. UNSELECT is preferred;
// CLOSE is equivalent here because the folder was opened read-only.
func (f *imapFolder) Close(ctx context.Context) error {
	client := f.session.client
	if client.State() == imap.ConnStateLogout {
		return nil
	}

	err := withTimeout(ctx, client, f.session.ioTimeout, func() error {
		if client.Caps().Has(imap.CapUnselect) {
			return client.Unselect().Wait()
		}
		return client.UnselectAndExpunge().Wait()
	})
	if err != nil {
		return &FolderError{Folder: f.name, Op: "close", Err: err}
	}
	return nil
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer, or
// nil when the server sent none.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) *Envelope {
	if buf.Envelope == nil {
		return nil
	}

	env := &Envelope{
		MessageID: buf.Envelope.MessageID,
		Subject:   buf.Envelope.Subject,
		Date:      buf.Envelope.Date,
		From:      formatAddresses(buf.Envelope.From),
		To:        formatAddresses(buf.Envelope.To),
	}
	return env
}

func formatAddresses(addrs []imap.Address) []string {
	var out []string
	for _, a := range addrs {
		if s := formatAddress(a.Name, a.Addr()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
