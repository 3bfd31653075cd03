// Package discovery implements a deterministic, depth-first walk of
// one or more root directories that emits every file or bundle whose
// name matches the conflict pattern grammar in pkg/conflict.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/conflict"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/events"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/logging"
	"github.com/rs/zerolog"
)

// Config configures one discovery walk.
type Config struct {
	Roots []string
	// MaxDepth bounds recursion below each root; 0 means unbounded.
	MaxDepth int
	// FollowSymlinks allows descending into symlinked directories.
	// Off by default: cycles via symlinks are forbidden.
	FollowSymlinks bool
	// IgnoreHidden skips dotfiles and dot-directories, except that
	// CloudPlaceholder files are always skipped regardless of this flag.
	IgnoreHidden bool
	// BundleExtensions overrides fskind.DefaultBundleExtensions when set.
	BundleExtensions []string
}

// Candidate is a file whose name matches a conflict pattern, paired with
// the presumed path of its non-conflict original.
type Candidate struct {
	Path             string
	Pattern          conflict.Pattern
	PresumedOriginal string
	Kind             fskind.Kind
}

// Find walks cfg.Roots and sends every matching Candidate on the
// returned channel, in deterministic lexicographic order. It emits
// CandidateFound and Error events on bus (bus may be nil). The channel
// closes when the walk completes or ctx is cancelled.
func Find(ctx context.Context, cfg Config, bus *events.Bus) <-chan Candidate {
	logger := logging.GetLogger("discovery")
	out := make(chan Candidate)

	go func() {
		defer close(out)

		roots := make([]string, len(cfg.Roots))
		copy(roots, cfg.Roots)
		sort.Strings(roots)

		visited := make(map[string]bool)

		for _, root := range roots {
			if ctx.Err() != nil {
				return
			}
			w := &walker{
				ctx:     ctx,
				cfg:     cfg,
				out:     out,
				bus:     bus,
				logger:  logger,
				visited: visited,
			}
			w.walk(root, 0)
		}
	}()

	return out
}

type walker struct {
	ctx     context.Context
	cfg     Config
	out     chan<- Candidate
	bus     *events.Bus
	logger  zerolog.Logger
	visited map[string]bool
}

// walk visits path depth-first. path is a root or a symlinked entry
// found by walkDir; it is classified here, and a non-directory is
// handed to visitEntry rather than walked.
func (w *walker) walk(path string, depth int) {
	if w.ctx.Err() != nil {
		return
	}

	info, err := os.Lstat(path)
	if err != nil {
		w.reportError(path, err)
		return
	}

	if info.Mode()&os.ModeSymlink != 0 {
		if !w.cfg.FollowSymlinks {
			return
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			w.reportError(path, err)
			return
		}
		if w.visited[resolved] {
			return
		}
		w.visited[resolved] = true
		info, err = os.Stat(path)
		if err != nil {
			w.reportError(path, err)
			return
		}
		path = resolved
	}

	if !info.IsDir() {
		w.visitEntry(path, info)
		return
	}

	w.walkDir(path, depth)
}

func (w *walker) walkDir(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.reportError(dir, err)
		return
	}

	names := make([]string, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
		byName[e.Name()] = e
	}
	sort.Strings(names)

	for _, name := range names {
		if w.ctx.Err() != nil {
			return
		}
		if w.cfg.IgnoreHidden && len(name) > 0 && name[0] == '.' && !fskind.IsCloudPlaceholder(name) {
			continue
		}

		entry := byName[name]
		childPath := filepath.Join(dir, name)
		info, err := entry.Info()
		if err != nil {
			w.reportError(childPath, err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			w.walk(childPath, depth+1)
			continue
		}

		kind := fskind.Classify(childPath, info, w.cfg.BundleExtensions)

		if kind == fskind.CloudPlaceholder {
			continue
		}

		if info.IsDir() {
			if kind == fskind.Bundle {
				w.visitEntry(childPath, info)
				continue
			}
			if w.cfg.MaxDepth > 0 && depth+1 >= w.cfg.MaxDepth {
				continue
			}
			w.walkDir(childPath, depth+1)
			continue
		}

		w.visitEntry(childPath, info)
	}
}

func (w *walker) visitEntry(path string, info os.FileInfo) {
	kind := fskind.Classify(path, info, w.cfg.BundleExtensions)
	if kind == fskind.CloudPlaceholder || kind == fskind.Other {
		return
	}

	name := filepath.Base(path)
	pattern, ok := conflict.Detect(name)
	if !ok {
		return
	}

	candidate := Candidate{
		Path:             path,
		Pattern:          pattern,
		PresumedOriginal: conflict.DeriveOriginal(path, pattern),
		Kind:             kind,
	}

	if w.bus != nil {
		w.bus.Publish(events.CandidateFound{Path: candidate.Path, Pattern: candidate.Pattern})
	}

	select {
	case <-w.ctx.Done():
	case w.out <- candidate:
	}
}

func (w *walker) reportError(path string, err error) {
	wrapped := errors.Wrapf(err, errors.ErrIO, "discovery failed for %s", path)
	w.logger.Warn().Err(wrapped).Str("path", path).Msg("skipping subtree after traversal error")
	if w.bus != nil {
		w.bus.Publish(events.Error{Where: "discovery", Reason: wrapped.Error()})
	}
}
