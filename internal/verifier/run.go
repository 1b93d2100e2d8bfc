package verifier

import (
	"context"
	"fmt"

	"tracecheck/internal/clients/jaeger"
	"tracecheck/internal/config"
	"tracecheck/internal/models"
)

// Run executes one scenario end to end: mark the start, place an order, wait
// for the flush (fixed delay or polling, per configuration), fetch the traces
// recorded since the start and check them against exp.
//
// The returned result is always non-nil and carries the outcome; the error is
// the reason for a failed or errored run.
func (v *Verifier) Run(ctx context.Context, exp Expectation) (*models.RunResult, error) {
	// The start is taken before the order goes out so the query window covers
	// this run's trace and nothing older.
	run := models.NewTestRun()
	result := &models.RunResult{
		ID:          run.ID,
		ServiceName: v.cfg.Jaeger.ServiceName,
		Strategy:    v.cfg.Jaeger.Strategy(),
		StartedAt:   run.StartedAt,
	}

	logger := v.logger.With("run", run.ID)
	logger.Info("Starting verification run", "service", result.ServiceName, "strategy", result.Strategy, "start", run.StartMicros())

	err := v.run(ctx, run, exp, result)
	result.Finish(err)

	if err != nil {
		logger.Error("Verification run did not pass", "outcome", result.Outcome, "error", err)
	} else {
		logger.Info("Verification run passed", "traceID", result.TraceID, "spans", result.SpanCount, "duration", result.Duration)
	}

	if v.metrics != nil {
		v.metrics.ObserveRun(result)
	}
	if v.recorder != nil {
		if recErr := v.recorder.RecordRun(context.WithoutCancel(ctx), result); recErr != nil {
			logger.Warn("Failed to record run", "error", recErr)
		}
	}

	return result, err
}

func (v *Verifier) run(ctx context.Context, run models.TestRun, exp Expectation, result *models.RunResult) error {
	status, err := v.SendStimulus(ctx)
	if err != nil {
		return err
	}
	result.StimulusStatus = status

	var traces []jaeger.Trace
	switch v.cfg.Jaeger.Strategy() {
	case config.StrategyPoll:
		traces, err = v.WaitForTraces(ctx, run.StartedAt, exp.TraceCount)
	default:
		if err := v.AwaitFlush(ctx); err != nil {
			return fmt.Errorf("waiting for flush: %w", err)
		}
		traces, err = v.FetchTraces(ctx, run.StartedAt, nil)
	}
	if err != nil {
		return err
	}

	result.TraceCount = len(traces)
	if len(traces) > 0 {
		result.TraceID = traces[0].TraceID
		result.SpanCount = traces[0].SpanCount()
		result.OperationNames = traces[0].OperationNames()
	}
	v.DumpTraces(traces)

	return VerifyTraceShape(traces, exp.TraceCount, exp.OperationNames)
}
