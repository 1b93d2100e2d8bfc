package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func tracesCmd() *cobra.Command {
	var (
		since     time.Duration
		operation string
		limit     int
		dump      bool
	)

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "List traces recorded for the configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if since <= 0 {
				return fmt.Errorf("--since must be positive")
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v := newVerifier(*cfg, logger)

			extra := url.Values{}
			if operation != "" {
				extra.Set("operation", operation)
			}
			if limit > 0 {
				extra.Set("limit", strconv.Itoa(limit))
			}

			traces, err := v.FetchTraces(cmd.Context(), time.Now().Add(-since), extra)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if dump {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(traces)
			}

			t := newTable(w)
			t.AppendHeader(table.Row{"Trace ID", "Started", "Spans", "Operations"})
			for _, tr := range traces {
				t.AppendRow(table.Row{
					tr.TraceID,
					time.UnixMicro(tr.StartTime()).UTC().Format(time.RFC3339Nano),
					tr.SpanCount(),
					strings.Join(tr.OperationNames(), ", "),
				})
			}
			t.Render()
			fmt.Fprintf(w, "%s for %s in the last %s\n", plural(len(traces), "trace"), cfg.Jaeger.ServiceName, since)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", time.Hour, "how far back to look")
	cmd.Flags().StringVar(&operation, "operation", "", "only traces containing this operation")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of traces (0 for backend default)")
	cmd.Flags().BoolVar(&dump, "dump", false, "print the raw traces as JSON")

	return cmd
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services known to the tracing backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v := newVerifier(*cfg, logger)

			services, err := v.FetchServiceNames(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, name := range services.Sorted() {
				marker := " "
				if name == cfg.Jaeger.ServiceName {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\n", marker, name)
			}
			if !services.Contains(cfg.Jaeger.ServiceName) {
				fmt.Fprintf(w, "service %q has not reported any spans yet\n", cfg.Jaeger.ServiceName)
			}
			return nil
		},
	}
}
