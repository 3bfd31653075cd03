package main

import (
	"fmt"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/engine"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/paths"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/report"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>...",
	Short: "Scan one or more directories for conflict duplicates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.scan")
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

		printReport(cmd, rpt)
		logger.Info().
			Int("groups", rpt.Totals.GroupCount).
			Int64("recoverableBytes", rpt.Totals.RemovableBytes).
			Msg("scan finished")

		if rpt.Totals.SkippedCount > 0 {
			return partialFailure("%d candidates could not be classified", rpt.Totals.SkippedCount)
		}
		return nil
	},
}

func printReport(cmd *cobra.Command, rpt *report.ScanReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Duplicate groups: %d (%d bytes recoverable)\n", rpt.Totals.GroupCount, rpt.Totals.RemovableBytes)
	for _, g := range rpt.Groups {
		fmt.Fprintf(out, "  keep %s\n", g.Keep)
		for _, m := range g.Members {
			fmt.Fprintf(out, "    remove %s (%d bytes)\n", m.Path, m.Size)
		}
	}
	if len(rpt.Orphans) > 0 {
		fmt.Fprintf(out, "Orphaned conflicts: %d\n", len(rpt.Orphans))
		for _, o := range rpt.Orphans {
			fmt.Fprintf(out, "  %s\n", o.CandidatePath)
		}
	}
	if len(rpt.Diverged) > 0 {
		fmt.Fprintf(out, "Diverged: %d\n", len(rpt.Diverged))
		for _, d := range rpt.Diverged {
			fmt.Fprintf(out, "  %s != %s\n", d.Keep, d.Remove)
		}
	}
	if len(rpt.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped: %d\n", len(rpt.Skipped))
		for _, s := range rpt.Skipped {
			fmt.Fprintf(out, "  %s (%s)\n", s.Path, s.Reason)
		}
	}
}

// expandRoots resolves a leading "~" in each positional root argument,
// the way an interactive shell would before the CLI ever sees it.
func expandRoots(roots []string) ([]string, error) {
	out := make([]string, len(roots))
	for i, r := range roots {
		expanded, err := paths.Expand(r)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

// drainEvents consumes the event bus to keep producers from blocking
// on terminal events when the CLI has no richer UI attached; a TUI
// frontend would range over bus.Events() itself instead.
func drainEvents(bus *events.Bus) {
	logger := logging.GetLogger("cmd.events")
	for e := range bus.Events() {
		switch ev := e.(type) {
		case events.Error:
			logger.Warn().Str("where", ev.Where).Str("reason", ev.Reason).Msg("error event")
		default:
		}
	}
}
