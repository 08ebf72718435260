// Package consolidate applies recorded decisions: keepers and unique
// files are copied with verification into the final collection, then
// removable members are backed up and deleted from the staging tree.
// Every group moves through a persisted state machine so an interrupted
// run resumes instead of starting over.
package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/dupes"
	"curator/internal/faults"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/safety"
)

// Executor consumes decisions and produces the final collection.
type Executor struct {
	cfg      *config.Config
	store    *catalog.Store
	guard    *safety.Guard
	logger   *slog.Logger
	dryRun   bool
	progress *progressbar.ProgressBar
	roots    []string
}

// New builds an executor. Dry-run follows the configuration default and
// can be overridden with SetDryRun.
func New(cfg *config.Config, store *catalog.Store, guard *safety.Guard, logger *slog.Logger) *Executor {
	roots := append([]string(nil), cfg.Paths.SourceRoots...)
	// Longest root first so nested roots resolve to the deepest match.
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) > len(roots[j]) })
	return &Executor{
		cfg:    cfg,
		store:  store,
		guard:  guard,
		logger: logging.NewComponentLogger(logger, "consolidate"),
		dryRun: cfg.Safety.DryRun,
		roots:  roots,
	}
}

// SetDryRun overrides the configured dry-run default.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// WithProgress attaches a progress bar updated once per processed file.
func (e *Executor) WithProgress(bar *progressbar.ProgressBar) *Executor {
	e.progress = bar
	return e
}

// Run executes every resolved decision plus every unique file. It
// refuses to start while any group lacks a decision, and aborts before
// the first write when the destination filesystem is too full.
func (e *Executor) Run(ctx context.Context, analysis *dupes.Analysis) (Result, error) {
	result := Result{
		RunID:     uuid.New().String(),
		DryRun:    e.dryRun,
		StartedAt: time.Now().UTC(),
	}
	logger := e.logger.With(logging.String(logging.FieldRunID, result.RunID))

	decisions, err := e.loadDecisions(ctx, analysis)
	if err != nil {
		return result, err
	}

	if !e.dryRun {
		reset, err := e.store.ResetRetryableStates(ctx)
		if err != nil {
			return result, err
		}
		if reset > 0 {
			logger.Info("reset retryable groups from a previous run", logging.Int64("count", reset))
		}
	}

	required, err := e.requiredBytes(analysis, decisions)
	if err != nil {
		return result, err
	}
	if err := e.guard.CheckCapacity(e.cfg.Paths.LibraryDir, required); err != nil {
		return result, err
	}
	if e.progress != nil {
		e.progress.ChangeMax(countPlannedFiles(analysis, decisions))
	}

	for _, f := range analysis.Unique {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.copyInto(logger, f.Path, f.ContentHash, &result); err != nil {
			result.FilesSkipped++
			result.Errors = append(result.Errors, errorLine(f.Path, err))
			logger.Warn("unique file not copied",
				logging.String(logging.FieldPath, f.Path), logging.Error(err))
		}
		e.bump()
	}

	for _, group := range analysis.Groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.runGroup(ctx, logger, group, decisions[group.Hash], &result)
	}

	if !e.dryRun {
		for _, root := range e.cfg.Paths.SourceRoots {
			if removed, err := fileutil.CleanupEmptyDirs(root); err == nil && removed > 0 {
				logger.Info("removed empty staging directories",
					logging.String("root", root), logging.Int("count", removed))
			}
		}
	}

	result.FinishedAt = time.Now().UTC()
	result.Success = len(result.Errors) == 0 && result.GroupsFailed == 0
	if err := e.finishRun(ctx, logger, &result); err != nil {
		return result, err
	}
	return result, nil
}

// loadDecisions fetches the decision for every duplicate group and
// validates it against the group membership. A missing decision or a
// broken partition stops the run before any mutation.
func (e *Executor) loadDecisions(ctx context.Context, analysis *dupes.Analysis) (map[string]*catalog.Decision, error) {
	decisions := make(map[string]*catalog.Decision, len(analysis.Groups))
	var unresolved []string
	for _, group := range analysis.Groups {
		d, err := e.store.GetDecision(ctx, group.Hash)
		if err != nil {
			return nil, err
		}
		if d == nil {
			unresolved = append(unresolved, group.Hash)
			continue
		}
		if err := checkPartition(group, d); err != nil {
			return nil, err
		}
		decisions[group.Hash] = d
	}
	if len(unresolved) > 0 {
		return nil, faults.Wrap(faults.ErrValidation, "consolidate", "preflight",
			fmt.Sprintf("%d groups have no decision (first: %s); run decide first",
				len(unresolved), unresolved[0]), nil)
	}
	return decisions, nil
}

// checkPartition re-validates a stored decision against the current
// analysis, since the staging tree may have changed since it was made.
func checkPartition(group dupes.Group, d *catalog.Decision) error {
	members := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		members[m.Path] = true
	}
	if len(d.KeepPaths) == 0 {
		return faults.Wrap(faults.ErrValidation, "consolidate", "preflight",
			fmt.Sprintf("group %s: decision keeps nothing", d.GroupHash), nil)
	}
	seen := make(map[string]bool, len(group.Members))
	for _, p := range append(append([]string(nil), d.KeepPaths...), d.RemovePaths...) {
		if !members[p] {
			return faults.Wrap(faults.ErrValidation, "consolidate", "preflight",
				fmt.Sprintf("group %s: decision references %s which is not a current member", d.GroupHash, p), nil)
		}
		if seen[p] {
			return faults.Wrap(faults.ErrValidation, "consolidate", "preflight",
				fmt.Sprintf("group %s: decision lists %s more than once", d.GroupHash, p), nil)
		}
		seen[p] = true
	}
	if len(seen) != len(group.Members) {
		return faults.Wrap(faults.ErrValidation, "consolidate", "preflight",
			fmt.Sprintf("group %s: decision covers %d of %d members", d.GroupHash, len(seen), len(group.Members)), nil)
	}
	return nil
}

// requiredBytes sums the sizes of every planned copy whose destination
// does not exist yet. Already-present files cost nothing on a re-run.
func (e *Executor) requiredBytes(analysis *dupes.Analysis, decisions map[string]*catalog.Decision) (int64, error) {
	var total int64
	add := func(path string, size int64) error {
		dest, err := e.destPath(path)
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(dest); statErr == nil {
			return nil
		}
		total += size
		return nil
	}
	for _, f := range analysis.Unique {
		if err := add(f.Path, f.SizeBytes); err != nil {
			return 0, err
		}
	}
	for _, group := range analysis.Groups {
		d := decisions[group.Hash]
		sizes := make(map[string]int64, len(group.Members))
		for _, m := range group.Members {
			sizes[m.Path] = m.SizeBytes
		}
		for _, p := range d.KeepPaths {
			if err := add(p, sizes[p]); err != nil {
				return 0, err
			}
		}
	}
	return total, nil
}

func countPlannedFiles(analysis *dupes.Analysis, decisions map[string]*catalog.Decision) int {
	n := len(analysis.Unique)
	for _, group := range analysis.Groups {
		d := decisions[group.Hash]
		n += len(d.KeepPaths) + len(d.RemovePaths)
	}
	return n
}

// destPath maps a staging path into the final collection by stripping
// its source-root prefix and preserving the rest of the relative path.
func (e *Executor) destPath(path string) (string, error) {
	for _, root := range e.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.Join(e.cfg.Paths.LibraryDir, rel), nil
	}
	return "", faults.Wrap(faults.ErrValidation, "consolidate", "destination",
		fmt.Sprintf("%s is under no configured source root", path), nil)
}

// copyInto performs one verified copy into the final collection. A
// destination that already holds identical content counts as kept and is
// not rewritten. A destination with different content is a collision,
// never an overwrite.
func (e *Executor) copyInto(logger *slog.Logger, src, expectedHash string, result *Result) error {
	dest, err := e.destPath(src)
	if err != nil {
		return err
	}
	if err := e.guard.EnsureWritable(e.cfg.Paths.LibraryDir, dest); err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		destHash, hashErr := fileutil.HashFile(dest)
		if hashErr != nil {
			return faults.Wrap(faults.ErrTransient, "consolidate", "verify existing", dest, hashErr)
		}
		if destHash == expectedHash {
			result.FilesAlreadyKept++
			return nil
		}
		return faults.Wrap(faults.ErrIntegrity, "consolidate", "copy",
			fmt.Sprintf("destination %s exists with different content", dest), nil)
	}
	if e.dryRun {
		logger.Info("dry-run: would copy",
			logging.String("src", src), logging.String("dest", dest))
		result.FilesKept++
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return faults.Wrap(faults.ErrTransient, "consolidate", "create destination directory", dest, err)
	}
	if _, err := fileutil.CopyFileVerified(src, dest, expectedHash); err != nil {
		return faults.Wrap(faults.ErrIntegrity, "consolidate", "verified copy", src, err)
	}
	result.FilesKept++
	return nil
}

func errorLine(path string, err error) string {
	return fmt.Sprintf("%s: [%s] %v", path, faults.Class(err), err)
}

func (e *Executor) bump() {
	if e.progress != nil {
		_ = e.progress.Add(1)
	}
}
