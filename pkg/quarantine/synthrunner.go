package quarantine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/core"
	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/arthur-debert/synthfs/pkg/synthfs/operations"
	"github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
)

// synthRunner executes the two quarantine filesystem operations that
// have a natural synthfs primitive: building the run directory tree
// and copying a file across volumes. The atomic-rename-or-copy move
// itself is hand-written in move.go — synthfs has no primitive for
// "fsync the copy before unlinking the source", which manifest
// durability requires.
type synthRunner struct {
	fs synthfs.FileSystem
}

func newSynthRunner() *synthRunner {
	return &synthRunner{fs: filesystem.NewOSFileSystem("/")}
}

// ensureDir creates dir and all missing parents with mode 0700, the
// way the run directory tree and quarantine base directory are
// created.
func (r *synthRunner) ensureDir(dir string) error {
	relPath, err := filepath.Rel("/", dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "resolving relative path for %s", dir)
	}

	opID := core.OperationID(fmt.Sprintf("create-dir-%s", dir))
	createOp := operations.NewCreateDirectoryOperation(opID, relPath)
	createOp.SetItem(&dirItem{path: relPath, mode: 0o700})

	pipeline := synthfs.NewMemPipeline()
	if err := pipeline.Add(synthfs.NewOperationsPackageAdapter(createOp)); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "building create-dir pipeline for %s", dir)
	}

	result := synthfs.NewExecutor().Run(context.Background(), pipeline, r.fs)
	if result.GetError() != nil {
		return errors.Wrapf(result.GetError(), errors.ErrIO, "creating directory %s", dir)
	}
	return nil
}

// copyFile copies src to dst via synthfs's copy operation, used as the
// cross-volume fallback when os.Rename returns EXDEV.
func (r *synthRunner) copyFile(src, dst string) error {
	relSrc, err := filepath.Rel("/", src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "resolving relative path for %s", src)
	}
	relDst, err := filepath.Rel("/", dst)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "resolving relative path for %s", dst)
	}

	opID := core.OperationID(fmt.Sprintf("copy-%s-to-%s", filepath.Base(src), dst))
	copyOp := operations.NewCopyOperation(opID, relDst)
	copyOp.SetPaths(relSrc, relDst)

	pipeline := synthfs.NewMemPipeline()
	if err := pipeline.Add(synthfs.NewOperationsPackageAdapter(copyOp)); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "building copy pipeline for %s", src)
	}

	result := synthfs.NewExecutor().Run(context.Background(), pipeline, r.fs)
	if result.GetError() != nil {
		return errors.Wrapf(result.GetError(), errors.ErrIO, "copying %s to %s", src, dst)
	}
	return nil
}

type dirItem struct {
	path string
	mode fs.FileMode
}

func (d *dirItem) Path() string       { return d.path }
func (d *dirItem) Type() string       { return "directory" }
func (d *dirItem) Mode() fs.FileMode  { return d.mode }
func (d *dirItem) IsDir() bool        { return true }
func (d *dirItem) ModTime() time.Time { return time.Now() }
func (d *dirItem) Size() int64        { return 0 }
