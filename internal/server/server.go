// Package server exposes the fetch pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/model"
	"github.com/nhle/inboxdigest/internal/render"
	"github.com/nhle/inboxdigest/internal/store"
	mailsync "github.com/nhle/inboxdigest/internal/sync"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"

	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// Fetcher runs fetch cycles.
type Fetcher interface {
	Fetch(ctx context.Context) []model.Message
	Status() mailsync.Status
}

// Questioner answers free-form questions.
type Questioner interface {
	Ask(ctx context.Context, question string) (string, error)
}

// RunLister reads the run log.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.FetchRun, error)
}

// Config holds the server dependencies.
type Config struct {
	Addr   string
	Locale string

	Fetcher    Fetcher
	Questioner Questioner
	Runs       RunLister

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Health *HealthChecker
	Logger *slog.Logger
}

// Server is the HTTP surface of the application.
type Server struct {
	cfg        Config
	logger     *slog.Logger
	health     *HealthChecker
	httpServer *http.Server
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthChecker()
		health.SetReady(true)
	}

	s := &Server{
		cfg:    cfg,
		logger: logging.WithOperation(logger, "http"),
		health: health,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /mails", s.handleMails)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /status", s.handleStatus)
	s.health.RegisterHealthEndpoints(mux)

	if s.cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.health.SetShuttingDown()
	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// handleMails runs a fetch cycle. A failed cycle is reported as an empty
// list; /status and /runs carry the reason.
func (s *Server) handleMails(w http.ResponseWriter, r *http.Request) {
	msgs := s.cfg.Fetcher.Fetch(r.Context())

	if r.URL.Query().Get("format") == "text" {
		for i, m := range msgs {
			msgs[i] = m.WithAnalysis(render.FormatAnalysis(m.AnalysisText(), s.cfg.Locale))
		}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		http.Error(w, "missing question", http.StatusBadRequest)
		return
	}

	answer, err := s.cfg.Questioner.Ask(r.Context(), question)
	if err != nil {
		s.logger.Warn("ask failed", logging.Err(err))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(answer))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRunFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runs, err := s.cfg.Runs.ListRuns(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing runs failed", logging.Err(err))
		http.Error(w, "listing runs failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.FetchRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Fetcher.Status())
}

func parseRunFilter(r *http.Request) (store.RunFilter, error) {
	q := r.URL.Query()
	filter := store.RunFilter{Limit: defaultRunsLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, fmt.Errorf("invalid limit: %q", v)
		}
		filter.Limit = min(n, maxRunsLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("invalid offset: %q", v)
		}
		filter.Offset = n
	}
	if v := q.Get("folder"); v != "" {
		filter.Folder = &v
	}
	if v := q.Get("outcome"); v != "" {
		outcome := model.RunOutcome(v)
		switch outcome {
		case model.RunOutcomeOK, model.RunOutcomeConnectionError, model.RunOutcomeFolderError:
		default:
			return filter, fmt.Errorf("invalid outcome: %q", v)
		}
		filter.Outcome = &outcome
	}
	return filter, nil
}
