// Package verifier drives an order through the demo service and checks the
// traces it leaves in Jaeger.
package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"tracecheck/internal/clients/jaeger"
	"tracecheck/internal/config"
	"tracecheck/internal/metrics"
	"tracecheck/internal/models"
)

// StimulusSender places an order and reports the HTTP status.
type StimulusSender interface {
	PostOrder(ctx context.Context) (int, error)
}

// TraceQuerier reads traces and service names from the tracing backend.
type TraceQuerier interface {
	GetTraces(ctx context.Context, service string, since time.Time, extra url.Values) ([]jaeger.Trace, error)
	GetServices(ctx context.Context) (jaeger.ServiceSet, error)
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, r *models.RunResult) error
}

// Verifier runs verification scenarios against one configured environment.
type Verifier struct {
	cfg      config.Config
	orders   StimulusSender
	traces   TraceQuerier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder RunRecorder
}

// Option customises a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used for run progress.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithMetrics records run and query metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithRecorder stores every finished run with r.
func WithRecorder(r RunRecorder) Option {
	return func(v *Verifier) { v.recorder = r }
}

// New creates a verifier. cfg is copied; later changes by the caller have no effect.
func New(cfg config.Config, orders StimulusSender, traces TraceQuerier, opts ...Option) *Verifier {
	v := &Verifier{
		cfg:    cfg,
		orders: orders,
		traces: traces,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Config returns the configuration snapshot the verifier runs with.
func (v *Verifier) Config() config.Config {
	return v.cfg
}

// SendStimulus posts one order. The returned status is informational.
func (v *Verifier) SendStimulus(ctx context.Context) (int, error) {
	started := time.Now()
	status, err := v.orders.PostOrder(ctx)
	v.observeQuery("order", started)
	if err != nil {
		return 0, fmt.Errorf("sending stimulus: %w", err)
	}
	if v.metrics != nil {
		v.metrics.ObserveStimulus(status)
	}
	return status, nil
}

// AwaitFlush blocks for the configured flush interval so the backend can make
// freshly emitted spans queryable. It only returns early if ctx is done.
func (v *Verifier) AwaitFlush(ctx context.Context) error {
	d := v.cfg.Jaeger.FlushInterval()
	v.logger.Debug("Waiting for flush", "interval", d)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchTraces returns the traces of the configured service recorded at or
// after since.
func (v *Verifier) FetchTraces(ctx context.Context, since time.Time, extra url.Values) ([]jaeger.Trace, error) {
	started := time.Now()
	traces, err := v.traces.GetTraces(ctx, v.cfg.Jaeger.ServiceName, since, extra)
	v.observeQuery("traces", started)
	if err != nil {
		return nil, fmt.Errorf("fetching traces: %w", err)
	}
	if v.metrics != nil {
		v.metrics.SetTraceCount(len(traces))
	}
	return traces, nil
}

// FetchServiceNames returns every service name the backend knows about.
func (v *Verifier) FetchServiceNames(ctx context.Context) (jaeger.ServiceSet, error) {
	started := time.Now()
	services, err := v.traces.GetServices(ctx)
	v.observeQuery("services", started)
	if err != nil {
		return nil, fmt.Errorf("fetching services: %w", err)
	}
	return services, nil
}

// notReadyError marks a poll that saw fewer traces than expected.
type notReadyError struct {
	have, want int
}

func (e *notReadyError) Error() string {
	return fmt.Sprintf("found %d of %d expected traces", e.have, e.want)
}

// WaitForTraces polls with exponential backoff until at least expectedCount
// traces recorded since since are visible. It gives up with a
// *models.TimeoutError once the configured poll timeout has passed. Transport
// and malformed-response errors end the poll immediately.
func (v *Verifier) WaitForTraces(ctx context.Context, since time.Time, expectedCount int) ([]jaeger.Trace, error) {
	timeout := v.cfg.Jaeger.GetPollTimeoutDuration()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = v.cfg.Jaeger.GetPollIntervalDuration()
	b.MaxInterval = timeout / 4
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}

	started := time.Now()
	attempts := 0
	traces, err := backoff.Retry(ctx, func() ([]jaeger.Trace, error) {
		attempts++
		traces, err := v.FetchTraces(ctx, since, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if len(traces) < expectedCount {
			return traces, &notReadyError{have: len(traces), want: expectedCount}
		}
		return traces, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(timeout))

	if err != nil {
		var nr *notReadyError
		if errors.As(err, &nr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &models.TimeoutError{Waited: time.Since(started), Last: err}
		}
		return nil, err
	}

	v.logger.Debug("Traces available", "attempts", attempts, "waited", time.Since(started))
	return traces, nil
}

// DumpTraces logs every trace and its spans at debug level.
func (v *Verifier) DumpTraces(traces []jaeger.Trace) {
	v.logger.Debug(fmt.Sprintf("Got %d traces", len(traces)))
	for _, t := range traces {
		v.logger.Debug("------------------ Trace ------------------", "traceID", t.TraceID, "spans", t.SpanCount())
		for _, s := range t.Spans {
			pretty, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				v.logger.Debug("Unprintable span", "spanID", s.SpanID, "error", err)
				continue
			}
			v.logger.Debug(string(pretty))
		}
	}
}

func (v *Verifier) observeQuery(endpoint string, started time.Time) {
	if v.metrics != nil {
		v.metrics.ObserveQuery(endpoint, time.Since(started))
	}
}
