package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCompletion(t *testing.T) {
	m := New()
	m.RecordCompletion("advanced", 50, []string{"first_steps"})
	m.RecordCompletion("beginner", 10, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LessonsCompleted.WithLabelValues("advanced")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.XPAwarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadgesAwarded.WithLabelValues("first_steps")))
}

func TestRunLifecycle(t *testing.T) {
	m := New()
	m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsInFlight))

	m.RunFinished(10*time.Millisecond, 2, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RunsInFlight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TestCases.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TestCases.WithLabelValues("failed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordCompletion("beginner", 10, nil)
	m.RecordReset()
	m.RecordStoreError("save")
	m.RecordSubmission("scheduled")
	m.RunStarted()
	m.RunFinished(time.Second, 0, 0)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.RecordSubmission("scheduled")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `swiftcamp_submissions_total{outcome="scheduled"} 1`)
}
