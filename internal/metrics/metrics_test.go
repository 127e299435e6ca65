package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCycle("ok", 2*time.Second, 10, 1, 2)
	m.ObserveCycle("connection_error", time.Second, 0, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCycles.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchCycles.WithLabelValues("connection_error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MessagesReturned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeAnomalies))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnnotationFailures))

	count, err := testutil.GatherAndCount(reg, "inboxdigest_fetch_cycle_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestObserveAnswer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAnswer("anthropic", 100*time.Millisecond, nil)
	m.ObserveAnswer("anthropic", 100*time.Millisecond, errors.New("boom"))

	count, err := testutil.GatherAndCount(reg, "inboxdigest_answering_service_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, 1, testutil.CollectAndCount(m.AnswerDuration.WithLabelValues("anthropic", "error").(prometheus.Histogram)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCycle("ok", time.Second, 1, 0, 0)
		m.ObserveAnswer("openai", time.Second, nil)
	})
}
