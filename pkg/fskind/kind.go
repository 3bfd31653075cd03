// Package fskind classifies a filesystem entry into the three kinds the
// rest of icloud-dedupe reasons about: a regular file, a macOS-style
// bundle directory, or an unmaterialized iCloud placeholder.
package fskind

import (
	"os"
	"path/filepath"
	"strings"
)

// Kind is the classification of one directory entry.
type Kind int

const (
	// Regular is an ordinary file, hashed byte-for-byte.
	Regular Kind = iota
	// Bundle is a directory with a recognized package extension,
	// treated as a single opaque file.
	Bundle
	// CloudPlaceholder is a ".<name>.icloud" stub for a file iCloud has
	// not yet downloaded. Never hashed, always skipped.
	CloudPlaceholder
	// Other is anything else (a plain directory, a device file, ...)
	// that the scan does not classify further.
	Other
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "Regular"
	case Bundle:
		return "Bundle"
	case CloudPlaceholder:
		return "CloudPlaceholder"
	default:
		return "Other"
	}
}

// DefaultBundleExtensions is the set of package-directory extensions
// treated as a single opaque file rather than a tree to walk into.
var DefaultBundleExtensions = []string{".pages", ".numbers", ".keynote", ".logicx", ".app", ".framework", ".xcassets"}

// Classify determines the Kind of a directory entry from its name and
// fs.FileInfo (or os.DirEntry via its Info()). bundleExtensions is the
// configured set from pkg/config; pass nil to use DefaultBundleExtensions.
func Classify(path string, info os.FileInfo, bundleExtensions []string) Kind {
	name := filepath.Base(path)

	if IsCloudPlaceholder(name) {
		return CloudPlaceholder
	}

	if info.IsDir() {
		if isBundleName(name, bundleExtensions) {
			return Bundle
		}
		return Other
	}

	if info.Mode().IsRegular() {
		return Regular
	}

	return Other
}

// IsCloudPlaceholder reports whether name is a "." + original + ".icloud"
// stub: it begins with '.' and ends with ".icloud".
func IsCloudPlaceholder(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".icloud")
}

func isBundleName(name string, bundleExtensions []string) bool {
	if bundleExtensions == nil {
		bundleExtensions = DefaultBundleExtensions
	}
	ext := filepath.Ext(name)
	for _, known := range bundleExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
