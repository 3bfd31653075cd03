// Package quarantine implements a reversible move of confirmed
// duplicates into a staging area, with a durable JSON manifest
// enabling restore and purge.
package quarantine

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
)

// ManifestVersion is the current manifest schema version.
const ManifestVersion = 1

// QuarantineReceipt identifies one file moved by a quarantine run.
type QuarantineReceipt struct {
	ID              int       `json:"id"`
	OriginalPath    string    `json:"original_path"`
	QuarantinedPath string    `json:"quarantined_path"`
	Digest          string    `json:"digest"`
	Size            int64     `json:"size"`
	MovedAt         time.Time `json:"moved_at"`
}

// Manifest is the persistent record of one quarantine run.
type Manifest struct {
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"created_at"`
	RunID     string              `json:"run_id"`
	BaseDir   string              `json:"base_dir"`
	Entries   []QuarantineReceipt `json:"entries"`

	// unknown preserves any fields this build does not recognize, so a
	// read-modify-write round trip does not drop forward-compatible
	// data.
	unknown map[string]json.RawMessage `json:"-"`
}

// ManifestSummary is the lightweight listing returned by List.
type ManifestSummary struct {
	RunID      string
	Path       string
	CreatedAt  time.Time
	EntryCount int
}

func (m *Manifest) runDir() string {
	return filepath.Join(m.BaseDir, m.RunID)
}

func manifestPath(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, "manifest.json")
}

// loadManifest reads and parses the manifest for runID under baseDir.
func loadManifest(baseDir, runID string) (*Manifest, error) {
	path := manifestPath(baseDir, runID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrNotFound, "no manifest for run %s", runID)
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "reading manifest %s", path)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestCorrupt, "parsing manifest %s", path)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestCorrupt, "parsing manifest %s", path)
	}
	if m.Version > ManifestVersion {
		return nil, errors.Newf(errors.ErrManifestCorrupt,
			"manifest %s has schema version %d, newest understood is %d", path, m.Version, ManifestVersion)
	}

	known := map[string]bool{
		"version": true, "created_at": true, "run_id": true, "base_dir": true, "entries": true,
	}
	unknown := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			unknown[k] = v
		}
	}
	m.unknown = unknown
	return &m, nil
}

// save serializes m and atomically replaces the on-disk manifest:
// write to manifest.json.tmp, fsync, rename over manifest.json. This
// guarantees a crash never leaves a moved file without a manifest
// entry referencing it.
func (m *Manifest) save() error {
	payload, err := m.marshal()
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "serializing manifest")
	}

	final := manifestPath(m.BaseDir, m.RunID)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "opening %s", tmp)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return errors.Wrapf(err, errors.ErrIO, "writing %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, errors.ErrIO, "fsyncing %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "closing %s", tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "renaming %s to %s", tmp, final)
	}
	return nil
}

func (m *Manifest) marshal() ([]byte, error) {
	type entries struct {
		Version   int                 `json:"version"`
		CreatedAt time.Time           `json:"created_at"`
		RunID     string              `json:"run_id"`
		BaseDir   string              `json:"base_dir"`
		Entries   []QuarantineReceipt `json:"entries"`
	}
	base, err := json.Marshal(entries{
		Version: m.Version, CreatedAt: m.CreatedAt, RunID: m.RunID, BaseDir: m.BaseDir, Entries: m.Entries,
	})
	if err != nil {
		return nil, err
	}
	if len(m.unknown) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage)
	var baseMap map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	for k, v := range baseMap {
		merged[k] = v
	}
	for k, v := range m.unknown {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// deleteIfEmpty removes the run directory once restore or purge has
// left its manifest with no entries: an empty manifest directory is
// deleted rather than left behind as clutter.
func (m *Manifest) deleteIfEmpty() error {
	if len(m.Entries) > 0 {
		return nil
	}
	dir := m.runDir()
	if err := os.Remove(manifestPath(m.BaseDir, m.RunID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "removing manifest %s", dir)
	}
	// Restored entries leave their mirrored parent directories behind;
	// prune those that are now empty, deepest first.
	var subdirs []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != dir {
			subdirs = append(subdirs, p)
		}
		return nil
	})
	for i := len(subdirs) - 1; i >= 0; i-- {
		_ = os.Remove(subdirs[i])
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "removing empty run directory %s", dir)
	}
	return nil
}

// List enumerates manifests present under baseDir, most recent first.
func List(baseDir string) ([]ManifestSummary, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "listing %s", baseDir)
	}

	var summaries []ManifestSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := loadManifest(baseDir, e.Name())
		if err != nil {
			continue
		}
		summaries = append(summaries, ManifestSummary{
			RunID:      m.RunID,
			Path:       manifestPath(baseDir, m.RunID),
			CreatedAt:  m.CreatedAt,
			EntryCount: len(m.Entries),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].CreatedAt.After(summaries[j].CreatedAt) })
	return summaries, nil
}
