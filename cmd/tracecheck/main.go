// Package main provides the tracecheck command: it places an order with the
// demo order-processing service and verifies the resulting trace in Jaeger.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tracecheck/internal/clients/jaeger"
	"tracecheck/internal/clients/order"
	"tracecheck/internal/config"
	"tracecheck/internal/verifier"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tracecheck",
		Short:        "Verify the traces produced by the demo order-processing service",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(tracesCmd())
	root.AddCommand(servicesCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(sandboxCmd())

	return root
}

// loadConfig reads configuration and builds the logger every command shares.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	}))
	return cfg, logger, nil
}

// newVerifier wires the HTTP clients for cfg into a Verifier.
func newVerifier(cfg config.Config, logger *slog.Logger, opts ...verifier.Option) *verifier.Verifier {
	timeout := cfg.App.GetHTTPTimeoutDuration()
	orders := order.NewClient(cfg.Service.ServiceURL(), timeout, logger)
	traces := jaeger.NewClient(cfg.Jaeger.QueryURL(), timeout, logger)
	return verifier.New(cfg, orders, traces, append([]verifier.Option{verifier.WithLogger(logger)}, opts...)...)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
