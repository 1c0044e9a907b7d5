// Package metrics exposes Prometheus metrics for score submissions, round
// transitions, live pollers and HTTP requests.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the tabulator's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ScoreSubmissions *prometheus.CounterVec
	RoundTransitions *prometheus.CounterVec
	EvaluationTime   prometheus.Histogram
	LivePollers      prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// New creates the collectors and registers them in registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register tabulator metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.ScoreSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabulator_score_submissions_total",
		Help: "Score submissions by kind (criterion, answer) and outcome.",
	}, []string{"kind", "status"})

	m.RoundTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabulator_round_transitions_total",
		Help: "Round state machine transitions by operation and outcome.",
	}, []string{"operation", "outcome"})

	m.EvaluationTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tabulator_evaluation_duration_seconds",
		Help:    "Time spent evaluating the active round.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	m.LivePollers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tabulator_live_pollers",
		Help: "Number of running leaderboard pollers.",
	})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabulator_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	m.HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tabulator_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ScoreSubmissions.Describe(ch)
	m.RoundTransitions.Describe(ch)
	m.EvaluationTime.Describe(ch)
	m.LivePollers.Describe(ch)
	m.HTTPRequests.Describe(ch)
	m.HTTPLatency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ScoreSubmissions.Collect(ch)
	m.RoundTransitions.Collect(ch)
	m.EvaluationTime.Collect(ch)
	m.LivePollers.Collect(ch)
	m.HTTPRequests.Collect(ch)
	m.HTTPLatency.Collect(ch)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSubmission counts one score submission.
func (m *Metrics) RecordSubmission(kind string, err error) {
	if m == nil {
		return
	}
	m.ScoreSubmissions.WithLabelValues(kind, status(err)).Inc()
}

// RecordTransition counts one round state machine operation.
func (m *Metrics) RecordTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.RoundTransitions.WithLabelValues(operation, outcome).Inc()
}

// ObserveEvaluation records how long an evaluation took.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationTime.Observe(d.Seconds())
}

// PollerStarted and PollerStopped track running live pollers.
func (m *Metrics) PollerStarted() {
	if m == nil {
		return
	}
	m.LivePollers.Inc()
}

func (m *Metrics) PollerStopped() {
	if m == nil {
		return
	}
	m.LivePollers.Dec()
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, fmt.Sprint(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
