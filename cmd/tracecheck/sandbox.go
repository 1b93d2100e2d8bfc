package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tracecheck/internal/sandbox"
)

func sandboxCmd() *cobra.Command {
	var (
		addr       string
		flushDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve a stand-in order service and Jaeger query API on one port",
		Long: `Serve POST /order, GET /api/traces and GET /api/services from a single
in-memory process. Point EXAMPLE_PORT and JAEGER_API_PORT at it to try
tracecheck without the demo environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flushDelay < 0 {
				return fmt.Errorf("--flush-delay must not be negative")
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sb := sandbox.New(sandbox.Options{
				ServiceName: cfg.Jaeger.ServiceName,
				FlushDelay:  flushDelay,
				Logger:      logger,
			})
			srv := sandbox.NewServer(addr, sb)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			return srv.Shutdown(context.WithoutCancel(ctx))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&flushDelay, "flush-delay", 500*time.Millisecond, "delay before recorded traces become queryable")

	return cmd
}
