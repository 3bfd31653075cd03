package hash

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/fskind"
	"lukechampine.com/blake3"
)

// chunkSize bounds how much of a regular file is resident in memory at
// once while streaming it through the hasher.
const chunkSize = 256 * 1024

// DigestPath computes the content digest of path according to kind.
// Regular files are streamed in fixed-size chunks. Bundles are digested
// over a canonical serialization of their relative file tree so the
// result does not depend on traversal order. CloudPlaceholder is never
// passed here; callers must have already skipped it.
func DigestPath(path string, kind fskind.Kind, bundleExtensions []string) (Digest, error) {
	top, err := os.Lstat(path)
	if err != nil {
		return Digest{}, classifyReadErr(path, err)
	}
	if top.Mode()&os.ModeSymlink != 0 {
		return Digest{}, errors.Newf(errors.ErrIO, "refusing to follow top-level symlink: %s", path)
	}

	switch kind {
	case fskind.Regular:
		return digestRegularFile(path)
	case fskind.Bundle:
		return digestBundle(path, bundleExtensions)
	default:
		return Digest{}, errors.Newf(errors.ErrInvalidInput, "unsupported kind for digest: %s", kind)
	}
}

// Equal reports whether a and b have identical content, per kind.
func Equal(a, b string, kind fskind.Kind, bundleExtensions []string) (bool, error) {
	da, err := DigestPath(a, kind, bundleExtensions)
	if err != nil {
		return false, err
	}
	db, err := DigestPath(b, kind, bundleExtensions)
	if err != nil {
		return false, err
	}
	return da.Equal(db), nil
}

func digestRegularFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, classifyReadErr(path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return Digest{}, classifyReadErr(path, err)
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

type bundleEntry struct {
	relPath   string
	size      int64
	digestHex string
}

// digestBundle hashes a macOS-style bundle directory as a single opaque
// unit: a sorted list of (relative path, size, per-file digest), then
// the digest of that canonical serialization. Symlinks inside the
// bundle are hashed by their link target text, never followed.
func digestBundle(root string, bundleExtensions []string) (Digest, error) {
	var entries []bundleEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			h := blake3.New(32, nil)
			_, _ = h.Write([]byte(target))
			entries = append(entries, bundleEntry{
				relPath:   relPath,
				size:      int64(len(target)),
				digestHex: hexSum(h),
			})
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		fileDigest, err := digestRegularFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, bundleEntry{relPath: relPath, size: info.Size(), digestHex: fileDigest.Hex()})
		return nil
	})
	if err != nil {
		return Digest{}, classifyReadErr(root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].relPath < entries[j].relPath })

	h := blake3.New(32, nil)
	for _, e := range entries {
		fmt.Fprintf(h, "%s\x00%d\x00%s\n", e.relPath, e.size, e.digestHex)
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

func hexSum(h *blake3.Hasher) string {
	var d Digest
	copy(d[:], h.Sum(nil))
	return d.Hex()
}

func classifyReadErr(path string, err error) error {
	if os.IsPermission(err) {
		return errors.Wrapf(err, errors.ErrPermission, "permission denied: %s", path)
	}
	if os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrVanished, "vanished during read: %s", path)
	}
	return errors.Wrapf(err, errors.ErrIO, "read failed: %s", path)
}
