package quarantine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/hash"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
)

// Item is one tuple drawn from a ScanReport's duplicate groups,
// selected by the caller for quarantine.
type Item struct {
	Keep   string
	Remove string
	Digest hash.Digest
	Size   int64
}

// FailReason narrows why an Item could not be quarantined.
type FailReason string

const (
	FailContentChanged FailReason = "ContentChanged"
	FailVanished       FailReason = "Vanished"
	FailIOError        FailReason = "IOError"
	FailStaleCopy      FailReason = "StaleCopy"
)

// Failure pairs a rejected Item with why it failed.
type Failure struct {
	Item   Item
	Reason FailReason
	Cause  error
}

// Options configures one quarantine run.
type Options struct {
	// BaseDir is the quarantine base directory. Required: Run returns an
	// error when it is empty and does not fall back to
	// pkg/paths.QuarantineDir().
	BaseDir string
	// Paranoid re-verifies the digest of Remove at pre-flight, not just
	// its existence. Recommended; costs one extra hash per item.
	Paranoid bool
}

// Result is the outcome of one quarantine run: the manifest recording
// every item actually moved, plus any items that failed pre-flight or
// the move itself.
type Result struct {
	Manifest *Manifest
	Failed   []Failure
}

// Run performs the quarantine operation: pre-flight re-validation of
// each item, then a single-threaded move into
// base_dir/<run_id>/<relative_original_path>, with the manifest
// rewritten atomically after every successful move.
func Run(items []Item, opts Options, bus *events.Bus) (*Result, error) {
	logger := logging.GetLogger("quarantine")
	baseDir := opts.BaseDir
	if baseDir == "" {
		return nil, errors.New(errors.ErrInvalidInput, "quarantine requires a base directory")
	}

	runID, err := newRunID()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "generating run id")
	}

	manifest := &Manifest{
		Version:   ManifestVersion,
		CreatedAt: time.Now().UTC(),
		RunID:     runID,
		BaseDir:   baseDir,
	}

	runner := newSynthRunner()
	if err := runner.ensureDir(manifest.runDir()); err != nil {
		return nil, err
	}

	total := len(items)
	var failed []Failure

	for i, item := range items {
		if bus != nil {
			bus.Publish(events.QuarantineProgress{Done: i, Total: total, Current: item.Remove})
		}

		if reason, cause := preflight(item, opts.Paranoid); reason != "" {
			failed = append(failed, Failure{Item: item, Reason: reason, Cause: cause})
			logger.Warn().Str("path", item.Remove).Str("reason", string(reason)).Msg("quarantine pre-flight failed")
			continue
		}

		target := filepath.Join(manifest.runDir(), dropLeadingSlash(item.Remove))

		var staleErr *StaleCopy
		if err := move(runner, item.Remove, target); err != nil {
			if se, ok := err.(*StaleCopy); ok {
				staleErr = se
			} else {
				failed = append(failed, Failure{Item: item, Reason: FailIOError, Cause: err})
				logger.Error().Err(err).Str("path", item.Remove).Msg("quarantine move failed")
				continue
			}
		}

		entry := QuarantineReceipt{
			ID:              len(manifest.Entries),
			OriginalPath:    item.Remove,
			QuarantinedPath: target,
			Digest:          item.Digest.String(),
			Size:            item.Size,
			MovedAt:         time.Now().UTC(),
		}
		manifest.Entries = append(manifest.Entries, entry)

		if err := manifest.save(); err != nil {
			return nil, err
		}

		if staleErr != nil {
			failed = append(failed, Failure{Item: item, Reason: FailStaleCopy, Cause: staleErr})
			logger.Error().Err(staleErr).Str("path", item.Remove).Msg("quarantine left a stale copy")
		}
	}

	if bus != nil {
		bus.Publish(events.QuarantineProgress{Done: total, Total: total})
		bus.Publish(events.QuarantineComplete{Manifest: manifest, Failed: failed})
	}

	return &Result{Manifest: manifest, Failed: failed}, nil
}

// preflight re-validates one item immediately before the destructive
// move: the pre-flight check is the authoritative gate before any
// destructive operation, not the earlier verification pass, since the
// filesystem can change between them.
func preflight(item Item, paranoid bool) (FailReason, error) {
	if _, err := os.Lstat(item.Remove); err != nil {
		if os.IsNotExist(err) {
			return FailVanished, err
		}
		return FailIOError, err
	}
	if _, err := os.Lstat(item.Keep); err != nil {
		if os.IsNotExist(err) {
			return FailVanished, err
		}
		return FailIOError, err
	}

	if !paranoid {
		return "", nil
	}

	// Paranoid mode re-hashes remove as a regular file; bundles are
	// re-validated by existence only, since re-digesting a bundle at
	// pre-flight time is an expensive repeat of verification proper.
	info, err := os.Lstat(item.Remove)
	if err != nil {
		return FailVanished, err
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}
	current, err := hash.DigestPath(item.Remove, fskind.Regular, nil)
	if err != nil {
		return FailIOError, err
	}
	if !current.Equal(item.Digest) {
		return FailContentChanged, errors.Newf(errors.ErrContentChanged, "digest changed for %s", item.Remove)
	}
	return "", nil
}

func dropLeadingSlash(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// newRunID builds a "YYYYMMDDTHHMMSSZ-<6-char-random>" token: a UTC
// timestamp plus a random suffix drawn from a UUID, guaranteeing
// uniqueness even for quarantine runs started in the same second.
func newRunID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	suffix := strings.ReplaceAll(id.String(), "-", "")[:6]
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), suffix), nil
}
