package models

import (
	"strings"
	"time"
)

// TestResult is the outcome of a single test case
type TestResult struct {
	Description string `json:"description"`
	Expected    string `json:"expected"`
	Passed      bool   `json:"passed"`
	Reason      string `json:"reason"`
}

// RunReport is the narrative and verdict of one code submission
type RunReport struct {
	ID         string       `json:"id"`
	Log        []string     `json:"log"`
	Variables  []string     `json:"variables"`
	Results    []TestResult `json:"results"`
	Passed     int          `json:"passed"`
	Total      int          `json:"total"`
	Success    bool         `json:"success"`
	ExactMatch bool         `json:"exactMatch"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// Output joins the log lines the way they are shown to the learner
func (r RunReport) Output() string {
	if len(r.Log) == 0 {
		return ""
	}
	return strings.Join(r.Log, "\n") + "\n"
}

// Submission stores a finished code run for statistics
type Submission struct {
	ID        string
	LessonID  string
	Passed    int
	Total     int
	Success   bool
	Error     string
	Timestamp int64
}
