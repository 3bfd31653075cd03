// Package conflict implements the pure filename grammar for iCloud sync
// conflict duplicates: recognizing a conflict variant in a final path
// component and deriving the presumed original path from it.
//
// Nothing in this package touches the filesystem; it operates on names
// only, the way a rule engine's trigger matchers test a name or glob
// pattern without opening the file they describe.
package conflict

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the two conflict-name shapes iCloud produces.
type Kind int

const (
	// Copy matches "<stem> Copy[ N].<ext>".
	Copy Kind = iota
	// Numbered matches "<stem> N.<ext>".
	Numbered
)

func (k Kind) String() string {
	switch k {
	case Copy:
		return "Copy"
	case Numbered:
		return "Numbered"
	default:
		return "Unknown"
	}
}

// Pattern is the detected conflict variant for one filename.
//
// Index is the numeric suffix found in the name; for the bare "Copy"
// variant (no trailing number) HasIndex is false and Index is 0.
type Pattern struct {
	Kind     Kind
	HasIndex bool
	Index    int
}

var (
	reCopyBare = regexp.MustCompile(`^(.+) Copy$`)
	reCopyNum  = regexp.MustCompile(`^(.+) Copy (\d+)$`)
	reNumbered = regexp.MustCompile(`^(.+) (\d+)$`)
)

// Detect inspects name, the final component of a path (no separators),
// and reports the conflict pattern it matches, if any.
//
// name is split into (stem, ext) at the last '.'; a name with no '.' has
// an empty ext. stem is then tested, in order, against the bare "Copy"
// suffix, "Copy N", and "N" forms. The first match wins.
func Detect(name string) (Pattern, bool) {
	stem, _ := splitExt(name)

	if m := reCopyBare.FindStringSubmatch(stem); m != nil {
		return Pattern{Kind: Copy, HasIndex: false}, true
	}

	if m := reCopyNum.FindStringSubmatch(stem); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil && n >= 2 {
			return Pattern{Kind: Copy, HasIndex: true, Index: n}, true
		}
	}

	if m := reNumbered.FindStringSubmatch(stem); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil && n >= 2 {
			return Pattern{Kind: Numbered, HasIndex: true, Index: n}, true
		}
	}

	return Pattern{}, false
}

// IsConflict reports whether name matches any conflict pattern.
func IsConflict(name string) bool {
	_, ok := Detect(name)
	return ok
}

// DeriveOriginal returns the presumed original path for candidatePath,
// given the pattern Detect found for its final component. The parent
// directory is preserved; only the final component changes.
func DeriveOriginal(candidatePath string, pattern Pattern) string {
	dir := filepath.Dir(candidatePath)
	name := filepath.Base(candidatePath)

	stem, ext := splitExt(name)
	baseStem := stripSuffix(stem, pattern)

	var original string
	if ext == "" {
		original = baseStem
	} else {
		original = baseStem + "." + ext
	}
	return filepath.Join(dir, original)
}

// splitExt splits name at its last '.'; a name with no '.' has stem ==
// name and ext == "".
func splitExt(name string) (stem, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// stripSuffix removes the matched conflict suffix from stem, returning
// the stem of the presumed original.
func stripSuffix(stem string, pattern Pattern) string {
	switch pattern.Kind {
	case Copy:
		if pattern.HasIndex {
			if m := reCopyNum.FindStringSubmatch(stem); m != nil {
				return m[1]
			}
		}
		if m := reCopyBare.FindStringSubmatch(stem); m != nil {
			return m[1]
		}
	case Numbered:
		if m := reNumbered.FindStringSubmatch(stem); m != nil {
			return m[1]
		}
	}
	return stem
}
