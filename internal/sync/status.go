package sync

import (
	"context"
	"time"

	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/model"
)

// SyncState represents the current state of the fetch pipeline.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// String returns the lower-case state name.
func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the pipeline's state.
type Status struct {
	Folder      string          `json:"folder"`
	State       SyncState       `json:"state"`
	LastRun     *model.FetchRun `json:"last_run,omitempty"`
	LastSuccess time.Time       `json:"last_success,omitzero"`
	Error       string          `json:"error,omitempty"`
}

// Status returns a copy of the current status.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	if st.LastRun != nil {
		run := *st.LastRun
		st.LastRun = &run
	}
	return st
}

func (s *Syncer) setRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = SyncRunning
}

func (s *Syncer) setFinished(run model.FetchRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastRun = &run
	if run.Outcome == model.RunOutcomeOK {
		s.status.State = SyncIdle
		s.status.Error = ""
		s.status.LastSuccess = run.FinishedAt
		return
	}
	s.status.State = SyncError
	s.status.Error = run.Error
}

// Poll runs a cycle immediately and then every interval until ctx is done.
// Results are only observable through Status, the run log, and metrics.
func (s *Syncer) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Syncer) pollOnce(ctx context.Context) {
	if _, err := s.Run(ctx); err != nil && !errIsCancellation(err) {
		s.logger.Debug("background fetch failed", logging.Err(err))
	}
}
