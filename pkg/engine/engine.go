// Package engine wires the Pattern Engine, Content Hasher, Candidate
// Discovery, Verifier, Report Model, Quarantine Engine, and Event Bus
// into the operations the CLI surface invokes: Scan, Quarantine,
// Restore, Purge, and List.
package engine

import (
	"context"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/config"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/discovery"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/quarantine"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/report"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/verify"
)

// ScanOptions configures one Scan call.
type ScanOptions struct {
	Roots  []string
	Config *config.Config
}

// Scan runs discovery followed by parallel verification and returns
// the canonicalized report: roots flow through candidate discovery,
// then parallel verification, then report aggregation.
//
// If ctx is cancelled before verification completes, Scan returns
// (nil, nil): the report is not emitted on cancellation, and
// ScanCancelled is published instead of ScanComplete. Callers
// distinguish cancellation from "nothing found" by checking ctx.Err().
func Scan(ctx context.Context, opts ScanOptions, bus *events.Bus) (*report.ScanReport, error) {
	logger := logging.GetLogger("engine")
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	bus.Publish(events.ScanStarted{Roots: opts.Roots})

	discoveryCfg := discovery.Config{
		Roots:            opts.Roots,
		MaxDepth:         cfg.Scan.MaxDepth,
		FollowSymlinks:   cfg.Scan.FollowSymlinks,
		IgnoreHidden:     cfg.Scan.IgnoreHidden,
		BundleExtensions: cfg.Scan.BundleExtensions,
	}

	var candidates []discovery.Candidate
	for c := range discovery.Find(ctx, discoveryCfg, bus) {
		candidates = append(candidates, c)
	}

	if ctx.Err() != nil {
		logger.Debug().Msg("scan cancelled during discovery")
		bus.Publish(events.ScanCancelled{})
		return nil, nil
	}

	outcomes, cancelled := verify.All(ctx, candidates, cfg.Concurrency.WorkerPoolSize, cfg.Scan.BundleExtensions, bus)
	if cancelled {
		bus.Publish(events.ScanCancelled{})
		return nil, nil
	}

	rpt, err := report.Build(outcomes)
	if err != nil {
		bus.Publish(events.Error{Where: "report", Reason: err.Error()})
		return nil, err
	}

	bus.Publish(events.ScanComplete{Report: rpt})
	return rpt, nil
}

// QuarantineOptions configures one Quarantine call.
type QuarantineOptions struct {
	BaseDir  string
	Paranoid bool
}

// Quarantine moves the selected items into the quarantine store,
// producing a manifest.
func Quarantine(items []quarantine.Item, opts QuarantineOptions, bus *events.Bus) (*quarantine.Result, error) {
	return quarantine.Run(items, quarantine.Options{BaseDir: opts.BaseDir, Paranoid: opts.Paranoid}, bus)
}

// Restore moves entries of the given run back to their original
// paths. ids selects a subset by receipt ID; nil restores everything.
func Restore(baseDir, runID string, ids []int) (*quarantine.RestoreResult, error) {
	return quarantine.Restore(baseDir, runID, ids)
}

// Purge permanently deletes every file a run's manifest references.
func Purge(baseDir, runID string) (*quarantine.PurgeResult, error) {
	return quarantine.Purge(baseDir, runID)
}

// List enumerates quarantine manifests, most recent first.
func List(baseDir string) ([]quarantine.ManifestSummary, error) {
	return quarantine.List(baseDir)
}

// SelectAll flattens every DuplicateGroup in rpt into a quarantine
// selection covering all confirmed duplicates, the way the CLI's
// `quarantine` subcommand does when given no finer-grained selection.
func SelectAll(rpt *report.ScanReport) []quarantine.Item {
	var items []quarantine.Item
	for _, g := range rpt.Groups {
		for _, m := range g.Members {
			items = append(items, quarantine.Item{
				Keep:   g.Keep,
				Remove: m.Path,
				Digest: g.Digest,
				Size:   m.Size,
			})
		}
	}
	return items
}
