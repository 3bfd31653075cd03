// Package paths resolves the filesystem locations icloud-dedupe uses
// outside the scan targets themselves: where the quarantine store lives,
// where config is read from, where logs are written.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvHome overrides the entire icloud-dedupe application directory. When
// unset, locations fall back to XDG base directories.
const EnvHome = "ICLOUD_DEDUPE_HOME"

// AppDirName is the subdirectory name used under XDG locations.
const AppDirName = "icloud-dedupe"

// AppDir returns the root application directory: $ICLOUD_DEDUPE_HOME if
// set, otherwise the XDG data home joined with AppDirName.
func AppDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.DataHome, AppDirName)
}

// QuarantineDir returns the base directory under which quarantine runs
// are stored. Created with mode 0700 on first use by the quarantine
// package; this function only computes the path.
func QuarantineDir() string {
	return filepath.Join(AppDir(), "quarantine")
}

// StateDir returns the directory used for the log file, mirroring XDG
// state-home semantics but honoring ICLOUD_DEDUPE_HOME when set.
func StateDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.StateHome, AppDirName)
}

// ConfigDir returns the directory config.toml is read from.
func ConfigDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// Expand expands a leading "~" into the user's home directory. Used to
// resolve scan roots supplied by the external CLI layer.
func Expand(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	if len(path) > 1 && path[1] == filepath.Separator {
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
