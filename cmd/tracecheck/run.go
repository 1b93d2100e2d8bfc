package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tracecheck/internal/config"
	"tracecheck/internal/db"
	"tracecheck/internal/metrics"
	"tracecheck/internal/models"
	"tracecheck/internal/verifier"
)

func runCmd() *cobra.Command {
	var (
		strategy     string
		expectTraces int
		metricsFile  string
		historyPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Place an order and verify the trace it produces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if expectTraces < 0 {
				return fmt.Errorf("--expect-traces must be non-negative")
			}

			loaded, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg := *loaded
			if cmd.Flags().Changed("strategy") {
				cfg.Jaeger.FlushStrategy = strategy
			}
			if metricsFile != "" {
				cfg.Metrics.Textfile = metricsFile
			}
			if historyPath != "" {
				cfg.History.DBPath = historyPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := metrics.New()
			opts := []verifier.Option{verifier.WithMetrics(m)}

			if cfg.History.DBPath != "" {
				store, err := openHistory(cfg.History)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, verifier.WithRecorder(store))
			}

			v := newVerifier(cfg, logger, opts...)
			exp := verifier.DefaultExpectation()
			exp.TraceCount = expectTraces

			result, runErr := v.Run(cmd.Context(), exp)
			printResult(cmd, result)

			if cfg.Metrics.Textfile != "" {
				if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn("Failed to export metrics", "path", cfg.Metrics.Textfile, "error", err)
				}
			}

			return runErr
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", config.StrategyFixed, "flush strategy: fixed (sleep JAEGER_FLUSH_INTERVAL) or poll (backoff until traces appear)")
	cmd.Flags().IntVar(&expectTraces, "expect-traces", 1, "number of traces the order must produce")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	cmd.Flags().StringVar(&historyPath, "history-db", "", "record the run in this SQLite file")

	return cmd
}

func openHistory(cfg config.HistoryConfig) (*db.DB, error) {
	store, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func printResult(cmd *cobra.Command, r *models.RunResult) {
	t := newTable(cmd.OutOrStdout())
	t.SetTitle("Run " + r.ID)
	t.AppendRows([]table.Row{
		{"Service", r.ServiceName},
		{"Strategy", r.Strategy},
		{"Stimulus status", r.StimulusStatus},
		{"Traces", r.TraceCount},
		{"Trace ID", r.TraceID},
		{"Spans", r.SpanCount},
		{"Operations", strings.Join(r.OperationNames, ", ")},
		{"Duration", r.Duration.Round(time.Millisecond)},
		{"Outcome", strings.ToUpper(string(r.Outcome))},
	})
	if r.Message != "" {
		t.AppendRow(table.Row{"Message", r.Message})
	}
	t.Render()
}
