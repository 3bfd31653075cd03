package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/engine"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	restoreRunID   string
	restoreEntries string
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Move quarantined files back to their original paths",
	Long: `restore undoes a quarantine run. With --entries it restores only the
named receipt IDs; without it, every entry still in the run is restored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.restore")
		if restoreRunID == "" {
			return fatalf("--run is required")
		}

		ids, err := parseEntryIDs(restoreEntries)
		if err != nil {
			return fatalf("--entries: %w", err)
		}

		result, err := engine.Restore(resolveBaseDir(), restoreRunID, ids)
		if err != nil {
			return fatalf("restore failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "restored %d entr(y/ies)\n", len(result.Restored))
		for _, r := range result.Restored {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d: %s\n", r.ID, r.OriginalPath)
		}
		logger.Info().
			Str("runID", restoreRunID).
			Int("restored", len(result.Restored)).
			Int("failed", len(result.Failed)).
			Msg("restore finished")

		if len(result.Failed) > 0 {
			for _, f := range result.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %d: %s (%s)\n", f.Entry.ID, f.Entry.OriginalPath, f.Reason)
			}
			return partialFailure("%d entr(y/ies) could not be restored", len(result.Failed))
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreRunID, "run", "", "run ID to restore from (see `status`)")
	restoreCmd.Flags().StringVar(&restoreEntries, "entries", "", "comma-separated receipt IDs to restore (default: all)")
}

func parseEntryIDs(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid entry ID", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
