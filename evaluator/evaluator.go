package evaluator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/metrics"
	"github.com/korjavin/swiftcamp/models"
)

// Submission rejections
var (
	ErrEmptySource   = errors.New("empty source")
	ErrForbidden     = errors.New("forbidden operations present")
	ErrInvalidSyntax = errors.New("invalid syntax")
)

const defaultDelay = time.Second

// rejectionNarrative explains each rejection to the learner
var rejectionNarrative = map[error]string{
	ErrForbidden:     "❌ Your code uses operations that are not allowed here: imports, reflective or selector calls, unsafe casts, or raw memory management.\n",
	ErrInvalidSyntax: "❌ Invalid Swift syntax. Check your assignments and make sure if/for/while statements have a condition or a block.\n",
}

// Evaluator screens submissions and runs the simulated execution
type Evaluator struct {
	delay   time.Duration
	scorer  Scorer
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	output  string
	lastErr string
	running bool
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithDelay sets how long the simulated run takes before publishing
func WithDelay(d time.Duration) Option {
	return func(e *Evaluator) { e.delay = d }
}

func WithScorer(s Scorer) Option {
	return func(e *Evaluator) {
		if s != nil {
			e.scorer = s
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// New creates an evaluator using the substring heuristic
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		delay:  defaultDelay,
		scorer: SubstringScorer{},
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates the source and schedules a simulated run. The returned channel
// belongs to this call only: it receives exactly one report and is then closed.
// Runs cannot be cancelled.
func (e *Evaluator) Submit(src string, challenge *models.Challenge) (<-chan models.RunReport, error) {
	return e.submit(src, challenge, nil)
}

// CheckSolution reports an immediate match when the trimmed source equals the trimmed
// reference solution, and otherwise runs the test cases through Submit.
func (e *Evaluator) CheckSolution(src string, challenge *models.Challenge) (<-chan models.RunReport, error) {
	if challenge != nil && strings.TrimSpace(src) == strings.TrimSpace(challenge.Solution) {
		now := e.now()
		report := models.RunReport{
			ID: uuid.New().String(),
			Log: []string{
				"✅ Perfect! Your solution matches exactly!",
				"",
				"🎉 Great job! You've completed this challenge.",
			},
			Total:      len(challenge.TestCases),
			Passed:     len(challenge.TestCases),
			Success:    true,
			ExactMatch: true,
			StartedAt:  now,
			FinishedAt: now,
		}

		e.mu.Lock()
		e.seq++
		e.output = report.Output()
		e.lastErr = ""
		e.running = false
		e.mu.Unlock()

		e.metrics.RecordSubmission("exact_match")
		e.log.Debug("Solution matched reference", "run_id", report.ID)

		out := make(chan models.RunReport, 1)
		out <- report
		close(out)
		return out, nil
	}

	return e.submit(src, challenge, []string{"⚠️ Your solution doesn't match exactly, but let's test it...", ""})
}

func (e *Evaluator) submit(src string, challenge *models.Challenge, preamble []string) (<-chan models.RunReport, error) {
	if src == "" {
		e.metrics.RecordSubmission("rejected_empty")
		return nil, ErrEmptySource
	}

	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.output = ""
	e.lastErr = ""

	var rejection error
	switch {
	case ContainsForbidden(src):
		rejection = ErrForbidden
		e.metrics.RecordSubmission("rejected_forbidden")
	case !ValidateSyntax(src):
		rejection = ErrInvalidSyntax
		e.metrics.RecordSubmission("rejected_syntax")
	}
	if rejection != nil {
		e.lastErr = rejection.Error()
		e.output = rejectionNarrative[rejection]
		e.running = false
		e.mu.Unlock()
		e.log.Info("Submission rejected", "reason", rejection.Error())
		return nil, rejection
	}

	e.running = true
	e.output = "🚀 Running your code...\n"
	e.mu.Unlock()

	id := uuid.New().String()
	started := e.now()
	out := make(chan models.RunReport, 1)
	e.metrics.RunStarted()
	e.log.Debug("Scheduled simulated run", "run_id", id, "delay", e.delay)

	go func() {
		if e.delay > 0 {
			time.Sleep(e.delay)
		}

		report := e.execute(src, challenge, preamble)
		report.ID = id
		report.StartedAt = started
		report.FinishedAt = e.now()

		e.mu.Lock()
		if e.seq == seq {
			e.output = report.Output()
			e.running = false
		}
		e.mu.Unlock()

		e.metrics.RunFinished(report.FinishedAt.Sub(started), report.Passed, report.Total-report.Passed)
		e.log.Debug("Published run report", "run_id", id, "passed", report.Passed, "total", report.Total)

		out <- report
		close(out)
	}()

	e.metrics.RecordSubmission("scheduled")
	return out, nil
}

// execute builds the narrative for an accepted submission
func (e *Evaluator) execute(src string, challenge *models.Challenge, preamble []string) models.RunReport {
	var report models.RunReport
	logf := func(format string, args ...interface{}) {
		report.Log = append(report.Log, fmt.Sprintf(format, args...))
	}

	report.Log = append(report.Log, preamble...)
	logf("🚀 Running your code...")
	logf("")

	report.Variables = ExtractVariables(src)
	if len(report.Variables) > 0 {
		logf("📦 Variables created:")
		for _, v := range report.Variables {
			logf("   - %s", v)
		}
		logf("")
	}

	if challenge == nil {
		report.Success = true
		logf("✅ Code executed successfully!")
		return report
	}

	for _, tc := range challenge.TestCases {
		res := e.scorer.Score(src, tc)
		logf("🔍 Testing: %s", tc.Description)
		if res.Passed {
			report.Passed++
			logf("   ✅ Passed")
		} else {
			logf("   ❌ Failed - Expected: %s", tc.ExpectedOutput)
		}
		report.Results = append(report.Results, res)
	}
	report.Total = len(challenge.TestCases)
	report.Success = report.Passed == report.Total

	logf("🧪 Test Results: %d/%d passed", report.Passed, report.Total)
	logf("")
	if report.Success {
		logf("✅ All tests passed! Great job! 🎉")
	} else {
		report.Error = fmt.Sprintf("%d of %d tests failed", report.Total-report.Passed, report.Total)
		logf("❌ Some tests failed. Check your code and try again.")
	}
	return report
}

// Output returns the narrative of the most recent submission
func (e *Evaluator) Output() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output
}

// LastError returns the rejection reason of the most recent submission
func (e *Evaluator) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Running reports whether the most recent submission is still executing
func (e *Evaluator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Reset clears the narrative and the last error
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output = ""
	e.lastErr = ""
}
