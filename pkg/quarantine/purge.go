package quarantine

import (
	"os"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
)

// PurgeFailure pairs a receipt with the error encountered deleting it.
type PurgeFailure struct {
	Entry QuarantineReceipt
	Cause error
}

// PurgeResult is the outcome of one purge call.
type PurgeResult struct {
	Removed []QuarantineReceipt
	Failed  []PurgeFailure
}

// Purge permanently deletes every file referenced by the runID
// manifest, then the manifest itself, then the run directory.
// Per-entry failures accumulate rather than aborting the whole run.
func Purge(baseDir, runID string) (*PurgeResult, error) {
	logger := logging.GetLogger("quarantine")
	manifest, err := loadManifest(baseDir, runID)
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{}
	for _, entry := range manifest.Entries {
		if err := os.RemoveAll(entry.QuarantinedPath); err != nil {
			result.Failed = append(result.Failed, PurgeFailure{Entry: entry, Cause: err})
			logger.Error().Err(err).Str("path", entry.QuarantinedPath).Msg("purge failed for entry")
			continue
		}
		result.Removed = append(result.Removed, entry)
	}

	if len(result.Failed) > 0 {
		return result, nil
	}

	dir := manifest.runDir()
	if err := os.RemoveAll(dir); err != nil {
		return result, errors.Wrapf(err, errors.ErrIO, "removing run directory %s", dir)
	}
	return result, nil
}
