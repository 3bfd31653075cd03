package main

import (
	"fmt"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/engine"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/spf13/cobra"
)

var purgeRunID string

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently delete every file a quarantine run holds",
	Long: `purge deletes the quarantined copies of a run, and the run's
manifest and directory once every entry is gone. This is irreversible;
the files restore undoes into cannot be recovered after purge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.purge")
		if purgeRunID == "" {
			return fatalf("--run is required")
		}

		result, err := engine.Purge(resolveBaseDir(), purgeRunID)
		if err != nil {
			return fatalf("purge failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "purged %d entr(y/ies) from run %s\n", len(result.Removed), purgeRunID)
		logger.Info().
			Str("runID", purgeRunID).
			Int("removed", len(result.Removed)).
			Int("failed", len(result.Failed)).
			Msg("purge finished")

		if len(result.Failed) > 0 {
			for _, f := range result.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %d: %s (%v)\n", f.Entry.ID, f.Entry.OriginalPath, f.Cause)
			}
			return partialFailure("%d entr(y/ies) could not be purged", len(result.Failed))
		}
		return nil
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeRunID, "run", "", "run ID to purge (see `status`)")
}
