// Package report implements aggregation of a batch of verify.Outcome
// values into an immutable ScanReport, grouping confirmed duplicates
// by their keep path and canonicalizing order for stable display and
// testing.
package report

import (
	"sort"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/conflict"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/verify"
)

// Member is one duplicate file within a DuplicateGroup, carrying its
// own size so callers can build a quarantine selection tuple
// (keep, remove, digest, size) straight from the report.
type Member struct {
	Path string
	Size int64
}

// DuplicateGroup is all confirmed duplicates sharing one keep path.
type DuplicateGroup struct {
	Keep       string
	Members    []Member
	Digest     hash.Digest
	TotalBytes int64
}

// Orphan is a candidate with no file at its presumed original path.
type Orphan struct {
	CandidatePath string
	Pattern       conflict.Pattern
}

// Diverged is a candidate whose presumed original exists but differs in
// content.
type Diverged struct {
	Keep, Remove             string
	KeepDigest, RemoveDigest hash.Digest
}

// Skip is a candidate that could not be classified.
type Skip struct {
	Path   string
	Reason verify.SkipReason
	Cause  error
}

// Totals are the report's derived aggregate counts.
type Totals struct {
	GroupCount     int
	RemovableBytes int64
	OrphanCount    int
	DivergedCount  int
	SkippedCount   int
	DuplicateCount int
}

// ScanReport is the immutable result of one verification pass,
// canonicalized for stable display: groups sorted by TotalBytes
// descending then Keep ascending; members within a group sorted
// ascending; flat lists sorted by path ascending.
type ScanReport struct {
	Groups   []DuplicateGroup
	Orphans  []Orphan
	Diverged []Diverged
	Skipped  []Skip
	Totals   Totals
}

// Build aggregates outcomes into a canonicalized ScanReport.
//
// Grouping two ConfirmedDuplicate outcomes under the same keep with
// different digests is an invariant violation: it means the scan
// observed the same "original" file with two different contents, which
// should be impossible within one verification pass. Build returns a
// *errors.Error with code ErrInvariantViolation in that case rather
// than silently picking one digest.
func Build(outcomes []verify.Outcome) (*ScanReport, error) {
	groups := make(map[string]*DuplicateGroup)
	groupOrder := make([]string, 0)

	var orphans []Orphan
	var diverged []Diverged
	var skipped []Skip

	for _, o := range outcomes {
		switch o.Kind {
		case verify.ConfirmedDuplicate:
			g, ok := groups[o.Keep]
			if !ok {
				g = &DuplicateGroup{Keep: o.Keep, Digest: o.Digest}
				groups[o.Keep] = g
				groupOrder = append(groupOrder, o.Keep)
			} else if !g.Digest.Equal(o.Digest) {
				return nil, errors.Newf(errors.ErrInvariantViolation,
					"keep %q claimed with two distinct digests: %s and %s", o.Keep, g.Digest, o.Digest).
					WithDetail("keep", o.Keep)
			}
			g.Members = append(g.Members, Member{Path: o.Remove, Size: o.Size})
			g.TotalBytes += o.Size

		case verify.OrphanedConflict:
			orphans = append(orphans, Orphan{CandidatePath: o.CandidatePath, Pattern: o.Pattern})

		case verify.ContentDiverged:
			diverged = append(diverged, Diverged{
				Keep: o.Keep, Remove: o.Remove,
				KeepDigest: o.KeepDigest, RemoveDigest: o.RemoveDigest,
			})

		case verify.Skipped:
			skipped = append(skipped, Skip{Path: o.SkippedPath, Reason: o.Reason, Cause: o.Cause})
		}
	}

	groupList := make([]DuplicateGroup, 0, len(groupOrder))
	duplicateCount := 0
	for _, keep := range groupOrder {
		g := groups[keep]
		sort.Slice(g.Members, func(i, j int) bool { return g.Members[i].Path < g.Members[j].Path })
		duplicateCount += len(g.Members)
		groupList = append(groupList, *g)
	}

	sort.Slice(groupList, func(i, j int) bool {
		if groupList[i].TotalBytes != groupList[j].TotalBytes {
			return groupList[i].TotalBytes > groupList[j].TotalBytes
		}
		return groupList[i].Keep < groupList[j].Keep
	})

	sort.Slice(orphans, func(i, j int) bool { return orphans[i].CandidatePath < orphans[j].CandidatePath })
	sort.Slice(diverged, func(i, j int) bool { return diverged[i].Remove < diverged[j].Remove })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	var removable int64
	for _, g := range groupList {
		removable += g.TotalBytes
	}

	return &ScanReport{
		Groups:   groupList,
		Orphans:  orphans,
		Diverged: diverged,
		Skipped:  skipped,
		Totals: Totals{
			GroupCount:     len(groupList),
			RemovableBytes: removable,
			OrphanCount:    len(orphans),
			DivergedCount:  len(diverged),
			SkippedCount:   len(skipped),
			DuplicateCount: duplicateCount,
		},
	}, nil
}
