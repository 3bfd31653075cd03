package verify

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/discovery"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// One classifies a single candidate against the filesystem: does the
// presumed original exist, is it the same kind, does its content match.
// keep is always the presumed original; remove is always the candidate;
// they are never swapped.
func One(candidate discovery.Candidate, bundleExtensions []string) Outcome {
	keep := candidate.PresumedOriginal
	remove := candidate.Path

	keepInfo, err := os.Lstat(keep)
	if err != nil {
		if os.IsNotExist(err) {
			return Outcome{Kind: OrphanedConflict, CandidatePath: remove, Pattern: candidate.Pattern}
		}
		return skip(remove, err)
	}

	removeInfo, err := os.Lstat(remove)
	if err != nil {
		if os.IsNotExist(err) {
			return Outcome{Kind: Skipped, SkippedPath: remove, Reason: Vanished, Cause: err}
		}
		return skip(remove, err)
	}

	keepKind := fskind.Classify(keep, keepInfo, bundleExtensions)
	removeKind := fskind.Classify(remove, removeInfo, bundleExtensions)
	if keepKind != removeKind || (keepKind != fskind.Regular && keepKind != fskind.Bundle) {
		return Outcome{Kind: Skipped, SkippedPath: remove, Reason: UnsupportedKind}
	}

	if keepKind == fskind.Regular && keepInfo.Size() != removeInfo.Size() {
		return Outcome{Kind: ContentDiverged, Keep: keep, Remove: remove}
	}

	keepDigest, err := hash.DigestPath(keep, keepKind, bundleExtensions)
	if err != nil {
		return skip(remove, err)
	}
	removeDigest, err := hash.DigestPath(remove, removeKind, bundleExtensions)
	if err != nil {
		return skip(remove, err)
	}

	if keepDigest.Equal(removeDigest) {
		return Outcome{
			Kind:   ConfirmedDuplicate,
			Keep:   keep,
			Remove: remove,
			Digest: keepDigest,
			Size:   removeInfo.Size(),
		}
	}

	return Outcome{
		Kind:         ContentDiverged,
		Keep:         keep,
		Remove:       remove,
		KeepDigest:   keepDigest,
		RemoveDigest: removeDigest,
	}
}

func skip(path string, err error) Outcome {
	reason := ReadError
	if errors.Is(err, fs.ErrPermission) {
		reason = Permission
	}
	return Outcome{Kind: Skipped, SkippedPath: path, Reason: reason, Cause: err}
}

// All verifies candidates in parallel across a bounded worker pool,
// emitting VerifyProgress events on bus as each candidate completes.
// Ordering among outcomes is unspecified; callers canonicalize via
// pkg/report.
//
// If ctx is cancelled before all candidates finish, All returns
// (nil, true): a cancelled scan produces no report.
func All(ctx context.Context, candidates []discovery.Candidate, workers int, bundleExtensions []string, bus *events.Bus) ([]Outcome, bool) {
	logger := logging.GetLogger("verify")
	if workers <= 0 {
		workers = 1
	}

	total := len(candidates)
	outcomes := make([]Outcome, total)
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, candidate := range candidates {
		i, candidate := i, candidate
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcome := One(candidate, bundleExtensions)
			outcomes[i] = outcome

			n := atomic.AddInt64(&done, 1)
			bus.Publish(events.VerifyProgress{Done: int(n), Total: total, Current: candidate.Path})
			bus.Publish(events.VerifyOutcome{Outcome: outcome})
			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		logger.Debug().Msg("verification cancelled")
		return nil, true
	}

	return outcomes, false
}
