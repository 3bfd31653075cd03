package quarantine

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	icerrors "github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
)

// StaleCopy marks an entry whose copy succeeded but whose subsequent
// unlink of the source failed, requiring manual cleanup.
type StaleCopy struct {
	Path string
	Err  error
}

func (s *StaleCopy) Error() string {
	return "stale copy at " + s.Path + ": unlink of source failed: " + s.Err.Error()
}

// move relocates src to dst, preferring an atomic rename when both
// paths are on the same volume. When the volumes differ (EXDEV), it
// falls back to copy-then-fsync-then-unlink: a failed copy leaves the
// original intact; a failed unlink after a successful copy returns a
// *StaleCopy rather than losing track of the duplicate file.
func move(runner *synthRunner, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return icerrors.Wrapf(err, icerrors.ErrIO, "creating parent directory for %s", dst)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	} else if !isCrossDevice(err) {
		return icerrors.Wrapf(err, icerrors.ErrIO, "moving %s to %s", src, dst)
	}

	if err := runner.copyFile(src, dst); err != nil {
		return err
	}
	if err := fsyncFile(dst); err != nil {
		return icerrors.Wrapf(err, icerrors.ErrIO, "fsyncing copy at %s", dst)
	}
	if err := os.Remove(src); err != nil {
		return &StaleCopy{Path: dst, Err: err}
	}
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

func fsyncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
