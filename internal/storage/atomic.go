// ABOUTME: Write-then-publish file writes used by every on-disk structure
// ABOUTME: A crash or cancellation never leaves a readable half-written file
package storage

import (
	"os"
	"path/filepath"

	"github.com/harper/transdoc/internal/errs"
)

// osRename is a variable to allow testing of rename errors
var osRename = os.Rename

// WriteFileAtomic writes data to a temp file in path's directory, syncs it, and renames it into place
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.NewIO("create directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return errs.NewIO("create temp file", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.NewIO("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return errs.NewIO("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errs.NewIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return errs.NewIO("chmod", tmpPath, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errs.NewIO("rename", path, err)
	}
	return nil
}
