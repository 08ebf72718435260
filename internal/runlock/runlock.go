// Package runlock serializes pipeline runs: at most one curator process
// may operate on a staging root at a time.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"curator/internal/faults"
)

// Lock is an advisory file lock scoped to one staging root.
type Lock struct {
	path string
	lock *flock.Flock
}

// New builds a lock for the given staging root. The lock file lives in
// the log directory so read-only staging mounts still work.
func New(logDir string) *Lock {
	path := filepath.Join(logDir, "curator.lock")
	return &Lock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking. A held lock means another run
// is active against the same staging root.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return faults.Wrap(faults.ErrTransient, "runlock", "create lock directory", l.path, err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return faults.Wrap(faults.ErrTransient, "runlock", "acquire", l.path, err)
	}
	if !ok {
		return faults.Wrap(faults.ErrValidation, "runlock", "acquire",
			fmt.Sprintf("another curator run holds %s", l.path), nil)
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}
