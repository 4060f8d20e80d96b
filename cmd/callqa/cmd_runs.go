package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"callqa/internal/store"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	var limit int
	var markdown bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List evaluation runs stored in a results database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := store.Open(dbPath, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs, markdown))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dbPath, "db", "", "SQLite results database (required)")
	f.IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	f.BoolVar(&markdown, "markdown", false, "Render as a Markdown table")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func renderRuns(runs []store.RunSummary, markdown bool) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Run", "Started", "Calls", "Judged", "Rejected"})
	for _, r := range runs {
		w.AppendRow(table.Row{r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Calls, r.Judged, r.Terminated})
	}
	if markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}
