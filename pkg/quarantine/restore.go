package quarantine

import (
	"os"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
)

// RestoreFailReason narrows why a restore entry could not be restored.
type RestoreFailReason string

const (
	RestoreConflict RestoreFailReason = "Conflict"
	RestoreIOError  RestoreFailReason = "IOError"
)

// RestoreFailure pairs a rejected receipt with why it failed.
type RestoreFailure struct {
	Entry  QuarantineReceipt
	Reason RestoreFailReason
	Cause  error
}

// RestoreResult is the outcome of one restore call.
type RestoreResult struct {
	Restored []QuarantineReceipt
	Failed   []RestoreFailure
}

// Restore moves entries back to their original_path. ids selects a
// subset by receipt ID; pass nil to restore every entry in the
// manifest. The manifest is rewritten atomically after each
// successful restore (the entry removed); the run directory is
// deleted once the manifest is empty.
func Restore(baseDir, runID string, ids []int) (*RestoreResult, error) {
	logger := logging.GetLogger("quarantine")
	manifest, err := loadManifest(baseDir, runID)
	if err != nil {
		return nil, err
	}

	runner := newSynthRunner()
	selected := selectIDs(manifest.Entries, ids)
	pending := manifest.Entries

	result := &RestoreResult{}

	for _, entry := range pending {
		if !selected[entry.ID] {
			continue
		}

		if conflict, cause := hasConflict(entry); conflict {
			result.Failed = append(result.Failed, RestoreFailure{Entry: entry, Reason: RestoreConflict, Cause: cause})
			logger.Warn().Str("path", entry.OriginalPath).Msg("restore skipped: original path now has different content")
			continue
		}

		if err := move(runner, entry.QuarantinedPath, entry.OriginalPath); err != nil {
			result.Failed = append(result.Failed, RestoreFailure{Entry: entry, Reason: RestoreIOError, Cause: err})
			continue
		}

		manifest.Entries = removeEntry(manifest.Entries, entry.ID)
		if err := manifest.save(); err != nil {
			return result, err
		}
		result.Restored = append(result.Restored, entry)
	}

	if err := manifest.deleteIfEmpty(); err != nil {
		return result, err
	}
	return result, nil
}

func removeEntry(entries []QuarantineReceipt, id int) []QuarantineReceipt {
	out := make([]QuarantineReceipt, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// hasConflict reports whether original_path now exists with content
// different from what the manifest recorded.
func hasConflict(entry QuarantineReceipt) (bool, error) {
	info, err := os.Lstat(entry.OriginalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrIO, "checking original path")
	}
	if !info.Mode().IsRegular() {
		return true, errors.New(errors.ErrInvalidInput, "original path is not a regular file")
	}

	want, err := hash.ParseHex(stripDigestPrefix(entry.Digest))
	if err != nil {
		return false, nil
	}
	got, err := hash.DigestPath(entry.OriginalPath, fskind.Regular, nil)
	if err != nil {
		return false, err
	}
	return !got.Equal(want), nil
}

func stripDigestPrefix(digest string) string {
	const prefix = "blake3:"
	if len(digest) > len(prefix) && digest[:len(prefix)] == prefix {
		return digest[len(prefix):]
	}
	return digest
}

func selectIDs(entries []QuarantineReceipt, ids []int) map[int]bool {
	selected := make(map[int]bool, len(entries))
	if ids == nil {
		for _, e := range entries {
			selected[e.ID] = true
		}
		return selected
	}
	for _, id := range ids {
		selected[id] = true
	}
	return selected
}
