package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inboxdigest/internal/metrics"
	"github.com/nhle/inboxdigest/internal/model"
	mailsync "github.com/nhle/inboxdigest/internal/sync"
	"github.com/nhle/inboxdigest/internal/testutil"
)

type stubFetcher struct {
	msgs   []model.Message
	status mailsync.Status
}

func (f *stubFetcher) Fetch(context.Context) []model.Message {
	out := make([]model.Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *stubFetcher) Status() mailsync.Status { return f.status }

type stubQuestioner struct {
	answer string
	err    error
	got    string
}

func (q *stubQuestioner) Ask(_ context.Context, question string) (string, error) {
	q.got = question
	return q.answer, q.err
}

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.Fetcher == nil {
		cfg.Fetcher = &stubFetcher{msgs: []model.Message{}}
	}
	if cfg.Questioner == nil {
		cfg.Questioner = &stubQuestioner{}
	}
	if cfg.Runs == nil {
		cfg.Runs = testutil.NewTestStore(t)
	}
	return New(cfg).Handler()
}

func TestMails_JSON(t *testing.T) {
	analysis := `{"summary":"Lunch plans","priority":"low"}`
	fetcher := &stubFetcher{msgs: []model.Message{
		{From: "a@example.com", To: "b@example.com", Subject: "Lunch", Body: "Noon?", Analysis: &analysis},
	}}
	h := newTestServer(t, Config{Fetcher: fetcher})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mails", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Lunch", got[0].Subject)
	assert.Equal(t, analysis, got[0].AnalysisText())
}

func TestMails_TextFormat(t *testing.T) {
	analysis := `{"summary":"Lunch plans","priority":"low"}`
	fetcher := &stubFetcher{msgs: []model.Message{{Subject: "Lunch", Analysis: &analysis}}}
	h := newTestServer(t, Config{Fetcher: fetcher, Locale: "en"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mails?format=text", nil))

	var got []model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "📝 Summary:\nLunch plans\n\n⚡ Priority:\nlow", got[0].AnalysisText())
	assert.Equal(t, analysis, *fetcher.msgs[0].Analysis)
}

func TestMails_EmptyIsArray(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mails", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAsk(t *testing.T) {
	q := &stubQuestioner{answer: "42"}
	h := newTestServer(t, Config{Questioner: q})

	form := url.Values{"question": {"What is the answer?"}}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())
	assert.Equal(t, "What is the answer?", q.got)
}

func TestAsk_QueryParameterAndFailureText(t *testing.T) {
	q := &stubQuestioner{
		answer: "Error querying the assistant: API Error",
		err:    errors.New("API Error"),
	}
	h := newTestServer(t, Config{Questioner: q})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask?question=hello", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error querying the assistant: API Error", rec.Body.String())
	assert.Equal(t, "hello", q.got)
}

func TestAsk_MissingQuestion(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask?question=hi", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRuns(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, outcome := range []model.RunOutcome{model.RunOutcomeOK, model.RunOutcomeConnectionError, model.RunOutcomeOK} {
		_, err := st.RecordRun(ctx, model.FetchRun{
			Folder:     "INBOX",
			Outcome:    outcome,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		})
		require.NoError(t, err)
	}
	h := newTestServer(t, Config{Runs: st})

	t.Run("all", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []model.FetchRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 3)
	})

	t.Run("filtered", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?outcome=connection_error", nil))

		var runs []model.FetchRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, model.RunOutcomeConnectionError, runs[0].Outcome)
	})

	t.Run("limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=1", nil))

		var runs []model.FetchRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 1)
	})

	for _, query := range []string{"limit=0", "limit=abc", "offset=-1", "outcome=bogus"} {
		t.Run("invalid "+query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStatus(t *testing.T) {
	fetcher := &stubFetcher{status: mailsync.Status{
		Folder: "INBOX",
		State:  mailsync.SyncError,
		Error:  "mailbox connection: refused",
	}}
	h := newTestServer(t, Config{Fetcher: fetcher})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"folder":"INBOX","state":"error","error":"mailbox connection: refused"}`, rec.Body.String())
}

func TestHealthEndpoints(t *testing.T) {
	health := NewHealthChecker()
	h := newTestServer(t, Config{Health: health})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	health.SetReady(true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["shutdown"])

	health.SetShuttingDown()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveCycle("ok", time.Second, 3, 0, 0)
	h := newTestServer(t, Config{Gatherer: reg})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inboxdigest_fetch_cycles_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "inboxdigest_messages_returned 3")
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	health := NewHealthChecker()
	health.SetReady(true)
	srv := New(Config{
		Addr:       ln.Addr().String(),
		Fetcher:    &stubFetcher{msgs: []model.Message{}},
		Questioner: &stubQuestioner{},
		Runs:       testutil.NewTestStore(t),
		Health:     health,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, health.shuttingDown.Load())
}
