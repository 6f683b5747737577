package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the progress engine and the evaluator.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	LessonsCompleted *prometheus.CounterVec
	XPAwarded        prometheus.Counter
	BadgesAwarded    *prometheus.CounterVec
	ProgressResets   prometheus.Counter
	PersistErrors    *prometheus.CounterVec

	Submissions  *prometheus.CounterVec
	TestCases    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	RunsInFlight prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LessonsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftcamp_lessons_completed_total",
			Help: "Lessons completed, by difficulty",
		}, []string{"difficulty"}),
		XPAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swiftcamp_xp_awarded_total",
			Help: "Experience points awarded",
		}),
		BadgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftcamp_badges_awarded_total",
			Help: "Badges awarded, by badge",
		}, []string{"badge"}),
		ProgressResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swiftcamp_progress_resets_total",
			Help: "Explicit progress resets",
		}),
		PersistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftcamp_progress_store_errors_total",
			Help: "Progress store failures, by operation",
		}, []string{"op"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftcamp_submissions_total",
			Help: "Code submissions, by outcome",
		}, []string{"outcome"}),
		TestCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swiftcamp_test_cases_total",
			Help: "Evaluated test cases, by result",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swiftcamp_run_duration_seconds",
			Help:    "Time from scheduling a simulated run to publishing its report",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swiftcamp_runs_in_flight",
			Help: "Simulated runs scheduled but not yet published",
		}),
	}

	reg.MustRegister(
		m.LessonsCompleted, m.XPAwarded, m.BadgesAwarded, m.ProgressResets, m.PersistErrors,
		m.Submissions, m.TestCases, m.RunDuration, m.RunsInFlight,
	)
	return m
}

// Handler exposes the registry over HTTP
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordCompletion(difficulty string, xp int, badges []string) {
	if m == nil {
		return
	}
	m.LessonsCompleted.WithLabelValues(difficulty).Inc()
	m.XPAwarded.Add(float64(xp))
	for _, b := range badges {
		m.BadgesAwarded.WithLabelValues(b).Inc()
	}
}

func (m *Metrics) RecordReset() {
	if m == nil {
		return
	}
	m.ProgressResets.Inc()
}

func (m *Metrics) RecordStoreError(op string) {
	if m == nil {
		return
	}
	m.PersistErrors.WithLabelValues(op).Inc()
}

// RecordSubmission counts a submission outcome: rejected_empty, rejected_forbidden,
// rejected_syntax, scheduled, exact_match
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsInFlight.Inc()
}

func (m *Metrics) RunFinished(elapsed time.Duration, passed, failed int) {
	if m == nil {
		return
	}
	m.RunsInFlight.Dec()
	m.RunDuration.Observe(elapsed.Seconds())
	m.TestCases.WithLabelValues("passed").Add(float64(passed))
	m.TestCases.WithLabelValues("failed").Add(float64(failed))
}
