package evaluator

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/swiftcamp/metrics"
	"github.com/korjavin/swiftcamp/models"
)

func receive(t *testing.T, ch <-chan models.RunReport) models.RunReport {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "channel closed without a report")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report")
		return models.RunReport{}
	}
}

func scoreChallenge() *models.Challenge {
	return &models.Challenge{
		Solution: "var score = 150",
		TestCases: []models.TestCase{
			{Input: "score", ExpectedOutput: "150", Description: "Score updated"},
		},
	}
}

func TestSubmitEmptyIsRejectedWithoutReport(t *testing.T) {
	e := New(WithDelay(0))
	ch, err := e.Submit("", nil)
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Nil(t, ch)
	assert.Empty(t, e.Output())
	assert.Empty(t, e.LastError())
}

func TestSubmitForbidden(t *testing.T) {
	m := metrics.New()
	e := New(WithDelay(0), WithMetrics(m))

	ch, err := e.Submit("let p = malloc(16)", nil)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, ch)
	assert.Equal(t, "forbidden operations present", e.LastError())
	assert.NotEmpty(t, e.Output())
	assert.False(t, e.Running())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("rejected_forbidden")))
}

func TestSubmitInvalidSyntax(t *testing.T) {
	e := New(WithDelay(0))
	ch, err := e.Submit("var x = 1\nwhile true", nil)
	assert.ErrorIs(t, err, ErrInvalidSyntax)
	assert.Nil(t, ch)
	assert.Equal(t, "invalid syntax", e.LastError())
}

func TestSubmitWithoutChallengeSucceeds(t *testing.T) {
	e := New(WithDelay(0))
	ch, err := e.Submit("var x = 5", nil)
	require.NoError(t, err)

	r := receive(t, ch)
	assert.True(t, r.Success)
	assert.Empty(t, r.Error)
	assert.Equal(t, []string{"x"}, r.Variables)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, []string{
		"🚀 Running your code...",
		"",
		"📦 Variables created:",
		"   - x",
		"",
		"✅ Code executed successfully!",
	}, r.Log)

	_, open := <-ch
	assert.False(t, open, "channel is closed after the report")
}

func TestSubstringScoring(t *testing.T) {
	e := New(WithDelay(0))

	t.Run("expected output present passes", func(t *testing.T) {
		ch, err := e.Submit("var total = 150", scoreChallenge())
		require.NoError(t, err)
		r := receive(t, ch)
		require.Len(t, r.Results, 1)
		assert.True(t, r.Results[0].Passed)
		assert.Equal(t, 1, r.Passed)
		assert.True(t, r.Success)
		assert.Contains(t, r.Log, "🔍 Testing: Score updated")
		assert.Contains(t, r.Log, "   ✅ Passed")
		assert.Contains(t, r.Log, "🧪 Test Results: 1/1 passed")
	})

	t.Run("input literal present passes", func(t *testing.T) {
		ch, err := e.Submit("var score = 10", scoreChallenge())
		require.NoError(t, err)
		assert.True(t, receive(t, ch).Success)
	})

	t.Run("neither present fails and echoes expected", func(t *testing.T) {
		ch, err := e.Submit("var total = 10", scoreChallenge())
		require.NoError(t, err)
		r := receive(t, ch)
		require.Len(t, r.Results, 1)
		assert.False(t, r.Results[0].Passed)
		assert.Equal(t, "150", r.Results[0].Expected)
		assert.Contains(t, r.Log, "   ❌ Failed - Expected: 150")
		assert.Contains(t, r.Log, "❌ Some tests failed. Check your code and try again.")
		assert.False(t, r.Success)
		assert.Equal(t, "1 of 1 tests failed", r.Error)
	})
}

func TestCasesAreEvaluatedIndependentlyInOrder(t *testing.T) {
	e := New(WithDelay(0))
	ch, err := e.Submit("let name = \"Sam\"", &models.Challenge{TestCases: []models.TestCase{
		{Input: "age", ExpectedOutput: "30", Description: "first"},
		{Input: "name", ExpectedOutput: "Sam", Description: "second"},
		{Input: "city", ExpectedOutput: "Paris", Description: "third"},
	}})
	require.NoError(t, err)

	r := receive(t, ch)
	require.Len(t, r.Results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{r.Results[0].Description, r.Results[1].Description, r.Results[2].Description})
	assert.Equal(t, []bool{false, true, false},
		[]bool{r.Results[0].Passed, r.Results[1].Passed, r.Results[2].Passed})
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 3, r.Total)
}

func TestCheckSolution(t *testing.T) {
	t.Run("exact match skips test cases", func(t *testing.T) {
		scorer := &countingScorer{}
		e := New(WithDelay(time.Hour), WithScorer(scorer))

		ch, err := e.CheckSolution("  var score = 150\n\n", scoreChallenge())
		require.NoError(t, err)

		r := receive(t, ch)
		assert.True(t, r.Success)
		assert.True(t, r.ExactMatch)
		assert.Zero(t, scorer.calls())
		assert.Contains(t, e.Output(), "Perfect! Your solution matches exactly!")
	})

	t.Run("mismatch falls through to the heuristic", func(t *testing.T) {
		e := New(WithDelay(0))
		ch, err := e.CheckSolution("var result = 150", scoreChallenge())
		require.NoError(t, err)

		r := receive(t, ch)
		assert.False(t, r.ExactMatch)
		assert.True(t, r.Success)
		assert.Equal(t, "⚠️ Your solution doesn't match exactly, but let's test it...", r.Log[0])
	})

	t.Run("blank source matches a blank solution", func(t *testing.T) {
		scorer := &countingScorer{}
		e := New(WithDelay(time.Hour), WithScorer(scorer))
		challenge := scoreChallenge()
		challenge.Solution = ""

		ch, err := e.CheckSolution("  \n", challenge)
		require.NoError(t, err)

		r := receive(t, ch)
		assert.True(t, r.ExactMatch)
		assert.True(t, r.Success)
		assert.Zero(t, scorer.calls())
	})

	t.Run("mismatch still screens", func(t *testing.T) {
		e := New(WithDelay(0))
		_, err := e.CheckSolution("import UIKit", scoreChallenge())
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestOverlappingSubmissionsKeepTheirOwnReports(t *testing.T) {
	e := New(WithDelay(50 * time.Millisecond))

	first, err := e.Submit("var first = 1", nil)
	require.NoError(t, err)
	second, err := e.Submit("var second = 2", nil)
	require.NoError(t, err)

	r2 := receive(t, second)
	r1 := receive(t, first)

	assert.Equal(t, []string{"first"}, r1.Variables)
	assert.Equal(t, []string{"second"}, r2.Variables)
	assert.NotEqual(t, r1.ID, r2.ID)

	assert.Contains(t, e.Output(), "   - second")
	assert.NotContains(t, e.Output(), "   - first", "stale run must not overwrite the session output")
	assert.False(t, e.Running())
}

func TestStaleRunDoesNotClobberNewerRejection(t *testing.T) {
	e := New(WithDelay(20 * time.Millisecond))

	pending, err := e.Submit("var x = 1", nil)
	require.NoError(t, err)
	_, err = e.Submit("import Foundation", nil)
	require.ErrorIs(t, err, ErrForbidden)

	receive(t, pending)
	assert.Equal(t, "forbidden operations present", e.LastError())
	assert.NotContains(t, e.Output(), "Code executed successfully")
}

func TestRunningFlag(t *testing.T) {
	e := New(WithDelay(30 * time.Millisecond))
	ch, err := e.Submit("var x = 1", nil)
	require.NoError(t, err)
	assert.True(t, e.Running())
	assert.Equal(t, "🚀 Running your code...\n", e.Output())

	receive(t, ch)
	assert.False(t, e.Running())
}

func TestReset(t *testing.T) {
	e := New(WithDelay(0))
	_, err := e.Submit("free(ptr)", nil)
	require.Error(t, err)

	e.Reset()
	assert.Empty(t, e.Output())
	assert.Empty(t, e.LastError())

	e.Reset()
	assert.Empty(t, e.Output())
}

func TestConcurrentSubmitters(t *testing.T) {
	e := New(WithDelay(time.Millisecond))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := e.Submit("var score = 150", scoreChallenge())
			if !assert.NoError(t, err) {
				return
			}
			r := <-ch
			assert.True(t, r.Success)
		}()
	}
	wg.Wait()
	assert.False(t, e.Running())
}

type countingScorer struct {
	mu sync.Mutex
	n  int
}

func (s *countingScorer) Score(src string, tc models.TestCase) models.TestResult {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return SubstringScorer{}.Score(src, tc)
}

func (s *countingScorer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
