package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/mailbox"
	"github.com/nhle/inboxdigest/internal/metrics"
	"github.com/nhle/inboxdigest/internal/model"
)

const (
	// recordTimeout bounds writing a run to the run log after a cycle.
	recordTimeout = 5 * time.Second

	// defaultCycleTimeout bounds a shared cycle once it no longer follows
	// any single caller's context.
	defaultCycleTimeout = 5 * time.Minute
)

// SessionProvider hands out a live mailbox session for the duration of fn.
type SessionProvider interface {
	WithSession(ctx context.Context, fn func(mailbox.Session) error) error
}

// MessageDecoder normalizes raw protocol messages.
type MessageDecoder interface {
	Decode(raw mailbox.RawMessage) (model.Message, error)
}

// MessageAnnotator attaches an analysis to a message. It must always return
// a message with Analysis set, even alongside an error.
type MessageAnnotator interface {
	Annotate(ctx context.Context, msg model.Message) (model.Message, error)
}

// RunRecorder persists the bookkeeping of finished cycles.
type RunRecorder interface {
	RecordRun(ctx context.Context, run model.FetchRun) (model.FetchRun, error)
}

// Options configures a Syncer.
type Options struct {
	// Folder is the mailbox folder to list. Defaults to INBOX.
	Folder string

	// Window is the number of most recent messages to return.
	Window int

	// Concurrency bounds parallel annotation requests. Defaults to 1.
	Concurrency int

	// CycleTimeout bounds one cycle. Defaults to five minutes.
	CycleTimeout time.Duration

	Recorder RunRecorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Cycle is the result of one fetch cycle.
type Cycle struct {
	Run      model.FetchRun
	Messages []model.Message
}

// Syncer runs fetch cycles: list the newest messages of one folder, decode
// them, and annotate each one. Concurrent callers share a single cycle.
type Syncer struct {
	sessions  SessionProvider
	decoder   MessageDecoder
	annotator MessageAnnotator
	opts      Options
	logger    *slog.Logger

	group  singleflight.Group
	mu     gosync.Mutex
	status Status
}

// New creates a Syncer.
func New(sessions SessionProvider, decoder MessageDecoder, annotator MessageAnnotator, opts Options) *Syncer {
	if opts.Folder == "" {
		opts.Folder = "INBOX"
	}
	if opts.Window < 0 {
		opts.Window = 0
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = defaultCycleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		sessions:  sessions,
		decoder:   decoder,
		annotator: annotator,
		opts:      opts,
		logger:    logging.WithOperation(logger, "fetch").With(logging.Folder(opts.Folder)),
		status:    Status{State: SyncIdle, Folder: opts.Folder},
	}
}

// Folder returns the folder this Syncer lists.
func (s *Syncer) Folder() string { return s.opts.Folder }

// Fetch runs a cycle and returns the enriched messages in ascending
// mailbox order. Connection and folder failures yield an empty list; use
// Run to tell them apart from an empty mailbox.
func (s *Syncer) Fetch(ctx context.Context) []model.Message {
	cycle, err := s.Run(ctx)
	if err != nil {
		return []model.Message{}
	}
	return cycle.Messages
}

// Run executes one cycle, or joins the one already in flight, and returns
// its result. The error is a *mailbox.ConnectionError or
// *mailbox.FolderError; per-message problems never fail a cycle.
//
// The cycle itself is detached from ctx and bounded by CycleTimeout, so a
// caller that gives up never cuts short the cycle other callers joined.
// That caller gets an empty Cycle and ctx.Err() right away.
func (s *Syncer) Run(ctx context.Context) (Cycle, error) {
	ch := s.group.DoChan(s.opts.Folder, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CycleTimeout)
		defer cancel()
		return s.runCycle(cctx)
	})

	select {
	case res := <-ch:
		cycle, _ := res.Val.(Cycle)
		return cycle.clone(), res.Err
	case <-ctx.Done():
		return Cycle{Messages: []model.Message{}}, ctx.Err()
	}
}

func (s *Syncer) runCycle(ctx context.Context) (Cycle, error) {
	s.setRunning()

	run := model.FetchRun{
		Folder:    s.opts.Folder,
		StartedAt: time.Now(),
	}

	decoded, listed, anomalies, err := s.listWindow(ctx)
	run.Listed = listed
	run.DecodeAnomalies = anomalies

	var messages []model.Message
	if err != nil {
		run.Outcome = outcomeOf(err)
		run.Error = err.Error()
		messages = []model.Message{}
	} else {
		var failures int
		messages, failures = s.annotate(ctx, decoded)
		run.Outcome = model.RunOutcomeOK
		run.AnnotationFailures = failures
	}

	run.Returned = len(messages)
	run.FinishedAt = time.Now()
	run = s.record(ctx, run)

	s.opts.Metrics.ObserveCycle(string(run.Outcome), run.Duration(),
		run.Returned, run.DecodeAnomalies, run.AnnotationFailures)
	s.setFinished(run)

	s.logger.Info("fetch cycle finished",
		logging.Outcome(string(run.Outcome)),
		"listed", run.Listed,
		"returned", run.Returned,
		"decode_anomalies", run.DecodeAnomalies,
		"annotation_failures", run.AnnotationFailures,
		slog.Duration(logging.KeyDuration, run.Duration()),
		logging.Err(err),
	)

	return Cycle{Run: run, Messages: messages}, err
}

// listWindow opens the folder read-only, fetches and decodes the window,
// and releases the folder again. The session is held only for this part.
func (s *Syncer) listWindow(ctx context.Context) ([]model.Message, int, int, error) {
	var (
		decoded   []model.Message
		listed    int
		anomalies int
	)

	err := s.sessions.WithSession(ctx, func(session mailbox.Session) error {
		folder, err := session.OpenReadOnly(ctx, s.opts.Folder)
		if err != nil {
			return asFolderError(s.opts.Folder, "open", err)
		}
		defer func() {
			if cerr := folder.Close(context.WithoutCancel(ctx)); cerr != nil {
				s.logger.Warn("closing folder failed", logging.Err(cerr))
			}
		}()

		count := folder.Count()
		listed = int(count)

		first, last, ok := Window(count, s.opts.Window)
		if !ok {
			return nil
		}

		raws, err := folder.Fetch(ctx, first, last)
		if err != nil {
			return asFolderError(s.opts.Folder, "fetch", err)
		}

		decoded = make([]model.Message, 0, len(raws))
		for _, raw := range raws {
			msg, derr := s.decoder.Decode(raw)
			if derr != nil {
				anomalies++
				level := slog.LevelWarn
				if mailbox.IsDecodeAnomaly(derr) {
					level = slog.LevelDebug
				}
				s.logger.Log(ctx, level, "message decoded with anomalies",
					"seq", raw.SeqNum,
					logging.Err(derr),
				)
			}
			decoded = append(decoded, msg)
		}
		return nil
	})
	if err != nil {
		return nil, listed, 0, err
	}
	return decoded, listed, anomalies, nil
}

// annotate enriches msgs with bounded concurrency. Output order matches
// input order and a failed annotation never affects other messages.
func (s *Syncer) annotate(ctx context.Context, msgs []model.Message) ([]model.Message, int) {
	out := make([]model.Message, len(msgs))
	var failures atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, msg := range msgs {
		g.Go(func() error {
			annotated, err := s.annotator.Annotate(ctx, msg)
			if err != nil {
				failures.Add(1)
			}
			if annotated.Analysis == nil {
				annotated = msg.WithAnalysis("")
			}
			out[i] = annotated
			return nil
		})
	}
	_ = g.Wait()

	return out, int(failures.Load())
}

// record writes run to the run log, if one is configured, and returns the
// stored copy.
func (s *Syncer) record(ctx context.Context, run model.FetchRun) model.FetchRun {
	if s.opts.Recorder == nil {
		return run
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	stored, err := s.opts.Recorder.RecordRun(ctx, run)
	if err != nil {
		s.logger.Warn("recording fetch run failed", logging.Err(err))
		return run
	}
	return stored
}

// Window returns the 1-based inclusive position range of the newest n
// messages in a folder holding count messages. ok is false when there is
// nothing to fetch.
func Window(count uint32, n int) (first, last uint32, ok bool) {
	if count == 0 || n <= 0 {
		return 0, 0, false
	}
	if uint64(n) >= uint64(count) {
		return 1, count, true
	}
	return count - uint32(n) + 1, count, true
}

func outcomeOf(err error) model.RunOutcome {
	if mailbox.IsConnectionError(err) {
		return model.RunOutcomeConnectionError
	}
	return model.RunOutcomeFolderError
}

func asFolderError(folder, op string, err error) error {
	if mailbox.IsFolderError(err) || mailbox.IsConnectionError(err) {
		return err
	}
	return &mailbox.FolderError{Folder: folder, Op: op, Err: err}
}

// clone returns a copy of c that shares no memory with it, so callers that
// joined the same cycle cannot observe each other's mutations.
func (c Cycle) clone() Cycle {
	out := Cycle{Run: c.Run}
	if c.Messages == nil {
		out.Messages = []model.Message{}
		return out
	}
	out.Messages = make([]model.Message, len(c.Messages))
	for i, m := range c.Messages {
		if m.Analysis != nil {
			m = m.WithAnalysis(*m.Analysis)
		}
		out.Messages[i] = m
	}
	return out
}

// errIsCancellation reports whether err came from the caller giving up.
func errIsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
