package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"curator/internal/catalog"
	"curator/internal/dupes"
	"curator/internal/faults"
	"curator/internal/fileutil"
	"curator/internal/logging"
)

// runGroup drives one group through its state machine. Copy failures and
// removal failures are recorded per group; they never abort the run.
func (e *Executor) runGroup(ctx context.Context, logger *slog.Logger, group dupes.Group, d *catalog.Decision, result *Result) {
	glog := logger.With(logging.String(logging.FieldGroupHash, group.Hash))
	if d.State == catalog.StateCompleted {
		result.GroupsAlreadyDone++
		return
	}

	setState := func(state catalog.GroupState, message string) {
		if e.dryRun {
			return
		}
		if err := e.store.SetGroupState(ctx, d.GroupHash, state, message); err != nil {
			glog.Error("failed to persist group state",
				logging.String("state", string(state)), logging.Error(err))
		}
	}

	sizes := make(map[string]int64, len(group.Members))
	for _, m := range group.Members {
		sizes[m.Path] = m.SizeBytes
	}

	setState(catalog.StateCopying, "")
	for _, p := range d.KeepPaths {
		if err := e.copyInto(glog, p, group.Hash, result); err != nil {
			setState(catalog.StateCopyFailed, err.Error())
			result.GroupsFailed++
			result.FilesSkipped++
			result.Errors = append(result.Errors, errorLine(p, err))
			glog.Error("keeper copy failed",
				logging.String(logging.FieldPath, p), logging.Error(err))
			return
		}
		e.bump()
	}
	setState(catalog.StateCopied, "")

	setState(catalog.StateRemoving, "")
	var removalErr error
	for _, p := range d.RemovePaths {
		if err := e.removeOne(ctx, glog, p, group.Hash, sizes[p], result); err != nil {
			removalErr = err
			result.Errors = append(result.Errors, errorLine(p, err))
			glog.Error("removal failed",
				logging.String(logging.FieldPath, p), logging.Error(err))
		}
		e.bump()
	}
	if removalErr != nil {
		setState(catalog.StatePartial, removalErr.Error())
		result.GroupsFailed++
		return
	}
	setState(catalog.StateCompleted, "")
	result.GroupsCompleted++
}

// removeOne deletes a single removable member after the containment
// check and the optional verified backup. A path already gone counts as
// removed by an earlier run, not an error.
func (e *Executor) removeOne(ctx context.Context, logger *slog.Logger, path, hash string, size int64, result *Result) error {
	if err := e.guard.EnsureRemovable(path); err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if e.dryRun {
		logger.Info("dry-run: would remove", logging.String(logging.FieldPath, path))
		result.FilesRemoved++
		result.BytesSaved += size
		return nil
	}
	if e.cfg.Safety.BackupBeforeRemoval {
		if err := e.backup(path, hash); err != nil {
			return err
		}
	}
	if err := os.Remove(path); err != nil {
		return faults.Wrap(faults.ErrTransient, "consolidate", "remove", path, err)
	}
	if err := e.store.DeleteFile(ctx, path); err != nil {
		return err
	}
	result.FilesRemoved++
	result.BytesSaved += size
	return nil
}

// backup copies a removable member into a per-group backup directory
// with the same verification discipline as keeper copies. Every member
// of a group is byte-identical, so an existing backup with the group's
// hash satisfies any member.
func (e *Executor) backup(path, hash string) error {
	dest := filepath.Join(e.cfg.Paths.BackupDir, shortHash(hash), filepath.Base(path))
	if err := e.guard.EnsureWritable(e.cfg.Paths.BackupDir, dest); err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		destHash, hashErr := fileutil.HashFile(dest)
		if hashErr == nil && destHash == hash {
			return nil
		}
		return faults.Wrap(faults.ErrIntegrity, "consolidate", "backup",
			fmt.Sprintf("backup destination %s exists with different content", dest), nil)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return faults.Wrap(faults.ErrTransient, "consolidate", "create backup directory", dest, err)
	}
	if _, err := fileutil.CopyFileVerified(path, dest, hash); err != nil {
		return faults.Wrap(faults.ErrIntegrity, "consolidate", "backup copy", path, err)
	}
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
