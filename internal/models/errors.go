package models

import (
	"errors"
	"fmt"
	"time"
)

// TransportError reports a failed HTTP exchange: the connection could not be
// made, the body could not be read, or the server answered with an
// unexpected status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status code %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that is not valid JSON or is
// missing the fields the caller depends on.
type MalformedResponseError struct {
	Op  string
	URL string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s %s: malformed response: %v", e.Op, e.URL, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// AssertionFailure reports observed trace data that does not match the
// expected shape. It is a test failure, not a fault of the harness.
type AssertionFailure struct {
	Check    string
	Expected any
	Actual   any
	Diff     string
}

func (e *AssertionFailure) Error() string {
	msg := fmt.Sprintf("%s: expected %v, got %v", e.Check, e.Expected, e.Actual)
	if e.Diff != "" {
		msg += "\n(-expected +actual)\n" + e.Diff
	}
	return msg
}

// TimeoutError reports that polling gave up before the expected traces became
// visible. Last holds the final observation, if any.
type TimeoutError struct {
	Waited time.Duration
	Last   error
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("traces not available after %s: %v", e.Waited, e.Last)
	}
	return fmt.Sprintf("traces not available after %s", e.Waited)
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// Outcome classifies the error returned by a run.
func Outcome(err error) RunOutcome {
	if err == nil {
		return OutcomePassed
	}
	var af *AssertionFailure
	var te *TimeoutError
	if errors.As(err, &te) || errors.As(err, &af) {
		return OutcomeFailed
	}
	return OutcomeError
}
