// Package models defines the shared data structures used throughout tracecheck.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RunOutcome is the single pass/fail verdict of a verification run.
type RunOutcome string

const (
	OutcomePassed RunOutcome = "passed"
	OutcomeFailed RunOutcome = "failed"
	OutcomeError  RunOutcome = "error"
)

// TestRun captures the start of a verification run. Only traces recorded at
// or after StartedAt belong to the run.
type TestRun struct {
	ID        string
	StartedAt time.Time
}

// NewTestRun starts a run now. Call it before sending the stimulus.
func NewTestRun() TestRun {
	return TestRun{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
}

// StartMillis returns the run start in Unix milliseconds.
func (r TestRun) StartMillis() int64 {
	return r.StartedAt.UnixMilli()
}

// StartMicros returns the run start in Unix microseconds, the unit the Jaeger
// query API expects.
func (r TestRun) StartMicros() int64 {
	return r.StartMillis() * 1000
}

// RunResult is the recorded outcome of one verification run.
type RunResult struct {
	ID             string        `json:"id"`
	ServiceName    string        `json:"service_name"`
	Strategy       string        `json:"strategy"`
	StartedAt      time.Time     `json:"started_at"`
	StimulusStatus int           `json:"stimulus_status"`
	TraceCount     int           `json:"trace_count"`
	TraceID        string        `json:"trace_id,omitempty"`
	SpanCount      int           `json:"span_count"`
	OperationNames []string      `json:"operation_names,omitempty"`
	Outcome        RunOutcome    `json:"outcome"`
	Message        string        `json:"message,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Passed reports whether the run met every expectation.
func (r *RunResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// Finish stamps the result with the run's verdict and elapsed time.
func (r *RunResult) Finish(err error) {
	r.Outcome = Outcome(err)
	if err != nil {
		r.Message = err.Error()
	}
	r.Duration = time.Since(r.StartedAt)
}
