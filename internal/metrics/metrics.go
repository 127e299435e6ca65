// Package metrics defines the Prometheus collectors for fetch cycles and
// the Answering Service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "inboxdigest"

// Metrics groups every collector the application records to.
type Metrics struct {
	FetchCycles        *prometheus.CounterVec
	FetchCycleDuration prometheus.Histogram
	MessagesReturned   prometheus.Gauge
	DecodeAnomalies    prometheus.Counter
	AnnotationFailures prometheus.Counter
	AnswerDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cycles_total",
			Help:      "Fetch cycles by outcome.",
		}, []string{"outcome"}),
		FetchCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_cycle_duration_seconds",
			Help:      "Wall time of a full fetch cycle including annotation.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		MessagesReturned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "messages_returned",
			Help:      "Messages returned by the most recent fetch cycle.",
		}),
		DecodeAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_anomalies_total",
			Help:      "Messages decoded with sentinel or empty fields.",
		}),
		AnnotationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_failures_total",
			Help:      "Messages whose analysis request failed.",
		}),
		AnswerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answering_service_duration_seconds",
			Help:      "Answering Service request latency by provider and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FetchCycles,
			m.FetchCycleDuration,
			m.MessagesReturned,
			m.DecodeAnomalies,
			m.AnnotationFailures,
			m.AnswerDuration,
		)
	}
	return m
}

// ObserveCycle records the outcome of one fetch cycle.
func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration, returned, anomalies, failures int) {
	if m == nil {
		return
	}
	m.FetchCycles.WithLabelValues(outcome).Inc()
	m.FetchCycleDuration.Observe(elapsed.Seconds())
	m.MessagesReturned.Set(float64(returned))
	m.DecodeAnomalies.Add(float64(anomalies))
	m.AnnotationFailures.Add(float64(failures))
}

// ObserveAnswer records one Answering Service request. Its signature
// matches ai.WithObserver.
func (m *Metrics) ObserveAnswer(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AnswerDuration.WithLabelValues(provider, status).Observe(elapsed.Seconds())
}
