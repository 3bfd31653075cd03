package main

import (
	"fmt"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/engine"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/spf13/cobra"
)

var paranoid bool

var quarantineCmd = &cobra.Command{
	Use:   "quarantine <path>...",
	Short: "Scan, then quarantine every confirmed duplicate found",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.quarantine")
		ctx, stop := signalContext()
		defer stop()

		roots, err := expandRoots(args)
		if err != nil {
			return fatalf("resolving roots: %w", err)
		}

		bus := events.NewBus(cfg.Concurrency.EventBufferSize)
		defer bus.Close()
		go drainEvents(bus)

		rpt, err := engine.Scan(ctx, engine.ScanOptions{Roots: roots, Config: cfg}, bus)
		if err != nil {
			return fatalf("scan failed: %w", err)
		}
		if rpt == nil {
			return cancelledErr()
		}

		items := engine.SelectAll(rpt)
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no confirmed duplicates found")
			return nil
		}

		result, err := engine.Quarantine(items, engine.QuarantineOptions{BaseDir: resolveBaseDir(), Paranoid: paranoid}, bus)
		if err != nil {
			return fatalf("quarantine failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "quarantined %d file(s) under run %s\n",
			len(result.Manifest.Entries), result.Manifest.RunID)
		logger.Info().
			Str("runID", result.Manifest.RunID).
			Int("moved", len(result.Manifest.Entries)).
			Int("failed", len(result.Failed)).
			Msg("quarantine finished")

		if len(result.Failed) > 0 {
			for _, f := range result.Failed {
				fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s (%s)\n", f.Item.Remove, f.Reason)
			}
			return partialFailure("%d item(s) could not be quarantined", len(result.Failed))
		}
		return nil
	},
}

func init() {
	quarantineCmd.Flags().BoolVar(&paranoid, "paranoid", false, "re-verify each file's digest immediately before moving it")
}
