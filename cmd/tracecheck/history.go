package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit       int
		historyPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded verification runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if historyPath != "" {
				cfg.History.DBPath = historyPath
			}
			if cfg.History.DBPath == "" {
				return fmt.Errorf("no history database configured\n\nSet HISTORY_DB_PATH or pass --history-db")
			}

			store, err := openHistory(cfg.History)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Run", "Started", "Strategy", "Traces", "Spans", "Outcome", "Message"})
			for _, r := range runs {
				t.AppendRow(table.Row{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Strategy,
					r.TraceCount,
					r.SpanCount,
					r.Outcome,
					r.Message,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().StringVar(&historyPath, "history-db", "", "SQLite file holding run history")

	return cmd
}
