// Package verify implements per-candidate classification against the
// filesystem, and a parallel driver that verifies a batch of
// candidates across a bounded worker pool.
package verify

import (
	"github.com/icloud-dedupe/icloud-dedupe/pkg/conflict"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
)

// Kind tags which verification result an Outcome holds. Only the
// fields relevant to Kind are populated.
type Kind int

const (
	ConfirmedDuplicate Kind = iota
	OrphanedConflict
	ContentDiverged
	Skipped
)

func (k Kind) String() string {
	switch k {
	case ConfirmedDuplicate:
		return "ConfirmedDuplicate"
	case OrphanedConflict:
		return "OrphanedConflict"
	case ContentDiverged:
		return "ContentDiverged"
	default:
		return "Skipped"
	}
}

// SkipReason narrows why an Outcome could not be classified.
type SkipReason string

const (
	ReadError       SkipReason = "ReadError"
	Permission      SkipReason = "Permission"
	UnsupportedKind SkipReason = "UnsupportedKind"
	Vanished        SkipReason = "Vanished"
)

// Outcome is the classification of one candidate.
type Outcome struct {
	Kind Kind

	// ConfirmedDuplicate
	Keep   string
	Remove string
	Digest hash.Digest
	Size   int64

	// ContentDiverged additionally sets these (Keep/Remove above apply
	// here too); both digests are zero when the divergence was proven
	// by size alone.
	KeepDigest   hash.Digest
	RemoveDigest hash.Digest

	// OrphanedConflict
	CandidatePath string
	Pattern       conflict.Pattern

	// Skipped
	SkippedPath string
	Reason      SkipReason
	Cause       error
}
