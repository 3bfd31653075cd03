package main

import (
	"fmt"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/engine"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List quarantine runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := engine.List(resolveBaseDir())
		if err != nil {
			return fatalf("status failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(summaries) == 0 {
			fmt.Fprintln(out, "no quarantine runs")
			return nil
		}
		for _, s := range summaries {
			fmt.Fprintf(out, "%s  %s  %d entr(y/ies)  %s\n",
				s.RunID, s.CreatedAt.Format("2006-01-02T15:04:05Z"), s.EntryCount, s.Path)
		}
		return nil
	},
}
