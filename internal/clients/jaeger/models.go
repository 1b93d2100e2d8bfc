package jaeger

import "sort"

// Trace represents a complete distributed trace as returned by the Jaeger query API.
type Trace struct {
	TraceID   string             `json:"traceID"`
	Spans     []Span             `json:"spans"`
	Processes map[string]Process `json:"processes,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

// Span represents a single timed operation within a larger trace.
// StartTime and Duration are in microseconds.
type Span struct {
	TraceID       string      `json:"traceID"`
	SpanID        string      `json:"spanID"`
	OperationName string      `json:"operationName"`
	References    []Reference `json:"references,omitempty"`
	StartTime     int64       `json:"startTime"`
	Duration      int64       `json:"duration"`
	Tags          []Tag       `json:"tags,omitempty"`
	ProcessID     string      `json:"processID,omitempty"`
}

// Reference links a span to its parent or to a span it follows.
type Reference struct {
	RefType string `json:"refType"` // CHILD_OF or FOLLOWS_FROM
	TraceID string `json:"traceID"`
	SpanID  string `json:"spanID"`
}

// Process describes the emitting service of a group of spans.
type Process struct {
	ServiceName string `json:"serviceName"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// Tag is a typed key/value attribute on a span or process.
type Tag struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// SpanCount returns the number of spans in the trace.
func (t *Trace) SpanCount() int {
	return len(t.Spans)
}

// OperationNames returns the operation name of every span, in span order.
// Duplicates are kept.
func (t *Trace) OperationNames() []string {
	names := make([]string, 0, len(t.Spans))
	for _, s := range t.Spans {
		names = append(names, s.OperationName)
	}
	return names
}

// FindByOperationName returns the spans with the given operation name.
func (t *Trace) FindByOperationName(name string) []Span {
	var matches []Span
	for _, s := range t.Spans {
		if s.OperationName == name {
			matches = append(matches, s)
		}
	}
	return matches
}

// StartTime returns the earliest span start in microseconds, or 0 for an
// empty trace.
func (t *Trace) StartTime() int64 {
	var start int64
	for i, s := range t.Spans {
		if i == 0 || s.StartTime < start {
			start = s.StartTime
		}
	}
	return start
}

// ServiceSet is the set of service names known to the tracing backend.
type ServiceSet map[string]struct{}

// NewServiceSet builds a set from a list of names.
func NewServiceSet(names ...string) ServiceSet {
	set := make(ServiceSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set.
func (s ServiceSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexical order.
func (s ServiceSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
