// Package sandbox runs an in-process stand-in for the demo order-processing
// service and the Jaeger query API, so verification runs can be exercised
// without the real environment.
package sandbox

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tracecheck/internal/clients/jaeger"
)

// OrderOperations are the operation names recorded for one placed order, in
// emission order. sendNotification is emitted twice by the demo flow.
var OrderOperations = []string{
	"POST",
	"placeOrder",
	"processOrderPlacement",
	"changeInventory",
	"sendNotification",
	"sendNotification",
}

// Options configures a Sandbox.
type Options struct {
	ServiceName string
	// FlushDelay hides a recorded trace from queries until it has elapsed,
	// mimicking the backend's asynchronous flush.
	FlushDelay time.Duration
	Logger     *slog.Logger
}

type storedTrace struct {
	trace     jaeger.Trace
	visibleAt time.Time
}

// Sandbox holds the traces recorded by placed orders.
type Sandbox struct {
	mu         sync.Mutex
	service    string
	flushDelay time.Duration
	malformed  bool
	failOrders bool
	traces     []storedTrace
	logger     *slog.Logger
}

// New creates a sandbox with no recorded traces.
func New(opts Options) *Sandbox {
	if opts.ServiceName == "" {
		opts.ServiceName = "order-processing"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sandbox{
		service:    opts.ServiceName,
		flushDelay: opts.FlushDelay,
		logger:     opts.Logger,
	}
}

// SetFlushDelay changes the delay applied to traces recorded from now on.
func (s *Sandbox) SetFlushDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushDelay = d
}

// SetMalformed makes every query API response an unparseable body.
func (s *Sandbox) SetMalformed(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformed = on
}

// SetFailOrders makes the order endpoint answer 500 while still recording a trace.
func (s *Sandbox) SetFailOrders(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOrders = on
}

// TraceCount returns the number of recorded traces, visible or not.
func (s *Sandbox) TraceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

// RecordOrder stores the trace of one placed order and returns it.
func (s *Sandbox) RecordOrder() jaeger.Trace {
	now := time.Now()
	trace := buildOrderTrace(s.service, now.UnixMicro())

	s.mu.Lock()
	s.traces = append(s.traces, storedTrace{trace: trace, visibleAt: now.Add(s.flushDelay)})
	s.mu.Unlock()

	return trace
}

// Router returns the HTTP routes of both stand-in services.
func (s *Sandbox) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/order", s.handleOrder)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.malformedMiddleware)
		r.Get("/services", s.handleServices)
		r.Get("/traces", s.handleTraces)
		r.Get("/traces/{traceID}", s.handleTrace)
	})
	return r
}

func (s *Sandbox) handleOrder(w http.ResponseWriter, r *http.Request) {
	trace := s.RecordOrder()
	s.logger.Debug("Recorded order trace", "traceID", trace.TraceID)

	s.mu.Lock()
	fail := s.failOrders
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain")
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("order failed"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Order placed"))
}

func (s *Sandbox) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Sandbox) malformedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		malformed := s.malformed
		s.mu.Unlock()

		if malformed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"data": [`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// visible returns the traces whose flush delay has passed.
func (s *Sandbox) visible(now time.Time) []jaeger.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []jaeger.Trace
	for _, st := range s.traces {
		if !now.Before(st.visibleAt) {
			out = append(out, st.trace)
		}
	}
	return out
}

func (s *Sandbox) handleServices(w http.ResponseWriter, r *http.Request) {
	services := []string{}
	if len(s.visible(time.Now())) > 0 {
		services = append(services, s.service)
	}
	writeData(w, services)
}

func (s *Sandbox) handleTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service := q.Get("service")
	if service == "" {
		writeError(w, http.StatusBadRequest, "parameter 'service' is required")
		return
	}

	var start int64
	if v := q.Get("start"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unable to parse param 'start': "+err.Error())
			return
		}
		start = parsed
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "unable to parse param 'limit'")
			return
		}
		limit = parsed
	}
	operation := q.Get("operation")

	traces := []jaeger.Trace{}
	for _, t := range s.visible(time.Now()) {
		if service != s.service || t.StartTime() < start {
			continue
		}
		if operation != "" && len(t.FindByOperationName(operation)) == 0 {
			continue
		}
		traces = append(traces, t)
		if limit > 0 && len(traces) == limit {
			break
		}
	}

	writeData(w, traces)
}

func (s *Sandbox) handleTrace(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceID")
	for _, t := range s.visible(time.Now()) {
		if t.TraceID == traceID {
			writeData(w, []jaeger.Trace{t})
			return
		}
	}
	writeError(w, http.StatusNotFound, "trace not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   data,
		"total":  0,
		"limit":  0,
		"offset": 0,
		"errors": nil,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"data":   nil,
		"errors": []map[string]any{{"code": status, "msg": msg}},
	})
}

func newID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// buildOrderTrace lays out the span tree of one order: the HTTP server span,
// placeOrder beneath it, then processOrderPlacement with inventory and
// notification children.
func buildOrderTrace(service string, startMicros int64) jaeger.Trace {
	traceID := newID(32)
	ids := make([]string, len(OrderOperations))
	for i := range ids {
		ids[i] = newID(16)
	}
	// parent index per span; -1 marks the root.
	parents := []int{-1, 0, 1, 2, 2, 2}

	spans := make([]jaeger.Span, len(OrderOperations))
	for i, op := range OrderOperations {
		span := jaeger.Span{
			TraceID:       traceID,
			SpanID:        ids[i],
			OperationName: op,
			StartTime:     startMicros + int64(i)*100,
			Duration:      int64(len(OrderOperations)-i) * 150,
			ProcessID:     "p1",
		}
		if p := parents[i]; p >= 0 {
			span.References = []jaeger.Reference{{RefType: "CHILD_OF", TraceID: traceID, SpanID: ids[p]}}
		}
		if i == 0 {
			span.Tags = []jaeger.Tag{
				{Key: "http.method", Type: "string", Value: http.MethodPost},
				{Key: "http.url", Type: "string", Value: "/order"},
				{Key: "span.kind", Type: "string", Value: "server"},
			}
		}
		spans[i] = span
	}

	return jaeger.Trace{
		TraceID: traceID,
		Spans:   spans,
		Processes: map[string]jaeger.Process{
			"p1": {ServiceName: service, Tags: []jaeger.Tag{{Key: "client-uuid", Type: "string", Value: newID(16)}}},
		},
	}
}
