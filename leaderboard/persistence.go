package leaderboard

import (
	"os"
	"path/filepath"

	"github.com/trendlab/trendlab/errs"
)

// currentSchemaVersion tags the Store's on-disk all-time file. Unknown
// fields are ignored on load for forward compatibility.
const currentSchemaVersion = 1

// lockSuffix is appended to path to derive the advisory lock file's name.
const lockSuffix = ".lock"

// AcquireLock creates an advisory lock file for path using O_CREATE|O_EXCL,
// the one file-locking primitive available without introducing a
// dependency the corpus never uses. Failure to acquire is reported as a
// PersistenceError so the caller can degrade to session-only writes with a
// warning.
func AcquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path+lockSuffix, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.PersistenceError, err, "acquire leaderboard advisory lock")
	}
	return f, nil
}

// ReleaseLock closes and removes the advisory lock file.
func ReleaseLock(path string, f *os.File) {
	_ = f.Close()
	_ = os.Remove(path + lockSuffix)
}

// EnsureDir creates the parent directory of path if it does not exist, so
// the Store's temp-file write never fails on a missing directory.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.PersistenceError, err, "create leaderboard directory")
	}
	return nil
}
