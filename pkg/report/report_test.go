package report_test

import (
	"errors"
	"testing"

	icerrors "github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/report"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestOf(b byte) hash.Digest {
	var d hash.Digest
	d[0] = b
	return d
}

// A single confirmed duplicate yields one group with one member and a
// matching total byte count.
func TestBuildSimpleCopyYieldsOneGroup(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/foo.txt", Remove: "/tmp/t/foo Copy.txt", Digest: digestOf(1), Size: 5},
	}
	r, err := report.Build(outcomes)
	require.NoError(t, err)
	require.Len(t, r.Groups, 1)
	assert.Equal(t, "/tmp/t/foo.txt", r.Groups[0].Keep)
	assert.Equal(t, []report.Member{{Path: "/tmp/t/foo Copy.txt", Size: 5}}, r.Groups[0].Members)
	assert.Equal(t, int64(5), r.Groups[0].TotalBytes)
	assert.Equal(t, int64(5), r.Totals.RemovableBytes)
}

// A diverged outcome produces no groups, only a Diverged entry.
func TestBuildDivergedYieldsNoGroups(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.ContentDiverged, Keep: "/tmp/t/a.txt", Remove: "/tmp/t/a Copy.txt", KeepDigest: digestOf(1), RemoveDigest: digestOf(2)},
	}
	r, err := report.Build(outcomes)
	require.NoError(t, err)
	assert.Empty(t, r.Groups)
	require.Len(t, r.Diverged, 1)
	assert.Equal(t, "/tmp/t/a.txt", r.Diverged[0].Keep)
}

// An orphaned conflict produces no groups, only an Orphan entry.
func TestBuildOrphanYieldsOrphanEntry(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.OrphanedConflict, CandidatePath: "/tmp/t/b Copy.txt"},
	}
	r, err := report.Build(outcomes)
	require.NoError(t, err)
	assert.Empty(t, r.Groups)
	require.Len(t, r.Orphans, 1)
	assert.Equal(t, "/tmp/t/b Copy.txt", r.Orphans[0].CandidatePath)
}

// A numbered conflict chain sharing one keep path merges into a single
// group, with members sorted ascending by path.
func TestBuildNumberedChainMergesIntoOneGroup(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/c.txt", Remove: "/tmp/t/c 3.txt", Digest: digestOf(1), Size: 1},
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/c.txt", Remove: "/tmp/t/c 2.txt", Digest: digestOf(1), Size: 1},
	}
	r, err := report.Build(outcomes)
	require.NoError(t, err)
	require.Len(t, r.Groups, 1)
	assert.Equal(t, []report.Member{{Path: "/tmp/t/c 2.txt", Size: 1}, {Path: "/tmp/t/c 3.txt", Size: 1}}, r.Groups[0].Members)
	assert.Equal(t, int64(2), r.Groups[0].TotalBytes)
}

func TestBuildTwoDistinctDigestsForOneKeepIsInvariantViolation(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/c.txt", Remove: "/tmp/t/c 2.txt", Digest: digestOf(1), Size: 1},
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/c.txt", Remove: "/tmp/t/c 3.txt", Digest: digestOf(2), Size: 1},
	}
	_, err := report.Build(outcomes)
	require.Error(t, err)
	var asErrors error = err
	assert.True(t, errors.As(asErrors, new(*icerrors.Error)))
	assert.True(t, icerrors.IsCode(err, icerrors.ErrInvariantViolation))
}

func TestBuildCanonicalizesGroupOrderByTotalBytesDescending(t *testing.T) {
	outcomes := []verify.Outcome{
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/small.txt", Remove: "/tmp/t/small Copy.txt", Digest: digestOf(1), Size: 5},
		{Kind: verify.ConfirmedDuplicate, Keep: "/tmp/t/big.txt", Remove: "/tmp/t/big Copy.txt", Digest: digestOf(2), Size: 500},
	}
	r, err := report.Build(outcomes)
	require.NoError(t, err)
	require.Len(t, r.Groups, 2)
	assert.Equal(t, "/tmp/t/big.txt", r.Groups[0].Keep)
	assert.Equal(t, "/tmp/t/small.txt", r.Groups[1].Keep)
}

func TestBuildSkippedAndEmptyReportTotals(t *testing.T) {
	r, err := report.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Totals.GroupCount)
	assert.Equal(t, int64(0), r.Totals.RemovableBytes)

	outcomes := []verify.Outcome{
		{Kind: verify.Skipped, SkippedPath: "/tmp/t/x.txt", Reason: verify.Permission},
	}
	r, err = report.Build(outcomes)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Totals.SkippedCount)
}
