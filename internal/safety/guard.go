// Package safety implements the cross-cutting guard rails: free-space
// preflight, path containment for destructive operations, and directory
// access checks. A containment failure is always surfaced as a safety
// violation, never downgraded to a skip, since it indicates a logic or
// configuration defect.
package safety

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"curator/internal/config"
	"curator/internal/faults"
	"curator/internal/logging"
)

// StatfsFunc reports total and free bytes for a filesystem path.
// Injectable so capacity tests don't depend on the host disk.
type StatfsFunc func(path string) (total, free uint64, err error)

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

// Guard enforces the safety invariants for one pipeline run.
type Guard struct {
	stagingRoot string
	minFree     int64
	statfs      StatfsFunc
	logger      *slog.Logger
}

// NewGuard builds a guard from validated configuration.
func NewGuard(cfg *config.Config, logger *slog.Logger) *Guard {
	return &Guard{
		stagingRoot: cfg.Paths.StagingDir,
		minFree:     cfg.MinFreeSpaceBytes(),
		statfs:      realStatfs,
		logger:      logging.NewComponentLogger(logger, "safety"),
	}
}

// WithStatfs overrides the filesystem probe, for tests.
func (g *Guard) WithStatfs(fn StatfsFunc) *Guard {
	g.statfs = fn
	return g
}

// StagingRoot returns the root destructive operations are confined to.
func (g *Guard) StagingRoot() string {
	return g.stagingRoot
}

// EnsureRemovable checks that a path slated for deletion resolves inside
// the staging root. Symlinks are resolved when the file exists so a link
// pointing out of the tree cannot smuggle a delete outside it.
func (g *Guard) EnsureRemovable(path string) error {
	if err := ensureWithin(g.stagingRoot, path); err != nil {
		g.logger.Error("refusing destructive operation outside staging root",
			logging.String(logging.FieldPath, path),
			logging.String("staging_root", g.stagingRoot),
			logging.String(logging.FieldEventType, "safety_violation"),
		)
		return err
	}
	return nil
}

// EnsureWritable checks that a write destination resolves under the given
// root (final collection or backup tree).
func (g *Guard) EnsureWritable(root, path string) error {
	return ensureWithin(root, path)
}

// CheckCapacity verifies that target's filesystem has room for
// requiredBytes plus the configured safety margin. Returns a capacity
// fault when it does not; the caller aborts before any write.
func (g *Guard) CheckCapacity(target string, requiredBytes int64) error {
	probe := target
	if _, err := os.Stat(probe); err != nil {
		probe = filepath.Dir(probe)
	}
	_, free, err := g.statfs(probe)
	if err != nil {
		return faults.Wrap(faults.ErrCapacity, "safety", "statfs", target, err)
	}
	available := int64(free) - g.minFree
	if available < requiredBytes {
		return faults.Wrap(faults.ErrCapacity, "safety", "capacity check",
			fmt.Sprintf("need %d bytes at %s but only %d available after %d margin",
				requiredBytes, target, max(available, 0), g.minFree), nil)
	}
	g.logger.Debug("capacity check passed",
		logging.Int64("required_bytes", requiredBytes),
		logging.Int64("available_bytes", available),
	)
	return nil
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable; writable additionally requires write and search permission.
func CheckDirectoryAccess(path string, writable bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return faults.Wrap(faults.ErrNotFound, "safety", "directory access", path, err)
	}
	if !info.IsDir() {
		return faults.Wrap(faults.ErrValidation, "safety", "directory access",
			fmt.Sprintf("%s is not a directory", path), nil)
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	if writable {
		mode |= unix.W_OK
	}
	if err := unix.Access(path, mode); err != nil {
		return faults.Wrap(faults.ErrValidation, "safety", "directory access",
			fmt.Sprintf("insufficient permissions on %s", path), err)
	}
	return nil
}

func ensureWithin(root, path string) error {
	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return faults.Wrap(faults.ErrSafety, "safety", "resolve root", root, err)
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return faults.Wrap(faults.ErrSafety, "safety", "resolve path", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
		if resolvedRoot, err := filepath.EvalSymlinks(absRoot); err == nil {
			absRoot = resolvedRoot
		}
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return faults.Wrap(faults.ErrSafety, "safety", "containment",
			fmt.Sprintf("path %s escapes root %s", path, root), nil)
	}
	return nil
}
