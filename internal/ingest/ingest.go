// Package ingest copies media files from configured source volumes into
// the staging tree, one subdirectory per volume, with the same
// verification discipline as the consolidation copies. The volumes are
// only ever read; re-running skips files already staged with a matching
// size, so an interrupted ingest resumes where it stopped.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"curator/internal/config"
	"curator/internal/faults"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/manifest"
	"curator/internal/media"
	"curator/internal/safety"
)

// VolumeStats accumulates per-volume counters.
type VolumeStats struct {
	Label       string   `json:"label"`
	Path        string   `json:"path"`
	FilesFound  int      `json:"files_found"`
	FilesCopied int      `json:"files_copied"`
	FilesStaged int      `json:"files_staged"`
	FilesFailed int      `json:"files_failed"`
	BytesCopied int64    `json:"bytes_copied"`
	Errors      []string `json:"errors,omitempty"`
}

// Result summarizes one ingest run across all volumes.
type Result struct {
	DryRun           bool          `json:"dry_run"`
	VolumesProcessed int           `json:"volumes_processed"`
	Volumes          []VolumeStats `json:"volumes"`
	FilesCopied      int           `json:"files_copied"`
	FilesStaged      int           `json:"files_staged"`
	FilesFailed      int           `json:"files_failed"`
	BytesCopied      int64         `json:"bytes_copied"`
	Errors           []string      `json:"errors,omitempty"`
	Duration         time.Duration `json:"duration_ns"`
}

// Ingester copies source volumes into the staging tree.
type Ingester struct {
	cfg      *config.Config
	guard    *safety.Guard
	logger   *slog.Logger
	dryRun   bool
	progress *progressbar.ProgressBar
	planned  int
	allowed  map[string]bool
}

// New builds an ingester. Dry-run follows the configuration default and
// can be overridden with SetDryRun.
func New(cfg *config.Config, guard *safety.Guard, logger *slog.Logger) *Ingester {
	allowed := make(map[string]bool, len(cfg.AllExtensions()))
	for _, ext := range cfg.AllExtensions() {
		allowed[ext] = true
	}
	return &Ingester{
		cfg:     cfg,
		guard:   guard,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		dryRun:  cfg.Safety.DryRun,
		allowed: allowed,
	}
}

// SetDryRun overrides the configured dry-run default.
func (i *Ingester) SetDryRun(dryRun bool) {
	i.dryRun = dryRun
}

// WithProgress attaches a progress bar updated once per processed file.
func (i *Ingester) WithProgress(bar *progressbar.ProgressBar) *Ingester {
	i.progress = bar
	return i
}

// ManifestPath returns where a volume's ingest manifest is written.
func ManifestPath(cfg *config.Config, label string) string {
	return filepath.Join(cfg.Paths.ReportDir, "ingest-"+label+".txt")
}

// Run ingests every configured volume. An inaccessible volume is
// recorded and skipped so one unplugged drive never blocks the rest;
// running with no volumes configured is an error.
func (i *Ingester) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{DryRun: i.dryRun}

	if len(i.cfg.Ingest.Volumes) == 0 {
		return result, faults.Wrap(faults.ErrValidation, "ingest", "preflight",
			"no source volumes configured", nil)
	}

	for _, vol := range i.cfg.Ingest.Volumes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if info, err := os.Stat(vol.Path); err != nil || !info.IsDir() {
			line := fmt.Sprintf("%s: volume not accessible", vol.Path)
			result.Errors = append(result.Errors, line)
			i.logger.Warn("source volume not accessible",
				logging.String(logging.FieldPath, vol.Path))
			continue
		}

		stats := i.runVolume(ctx, vol)
		result.Volumes = append(result.Volumes, stats)
		result.VolumesProcessed++
		result.FilesCopied += stats.FilesCopied
		result.FilesStaged += stats.FilesStaged
		result.FilesFailed += stats.FilesFailed
		result.BytesCopied += stats.BytesCopied
		result.Errors = append(result.Errors, stats.Errors...)
	}

	result.Duration = time.Since(start)
	i.logger.Info("ingest complete",
		logging.Int("volumes", result.VolumesProcessed),
		logging.Int("files_copied", result.FilesCopied),
		logging.Int("files_staged", result.FilesStaged),
		logging.Int("files_failed", result.FilesFailed),
		logging.Int64("bytes_copied", result.BytesCopied),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// runVolume copies one volume into staging_dir/<label>. The space check
// covers only files whose staged copy is missing or a different size, so
// resumed runs are not blocked by space already spent.
func (i *Ingester) runVolume(ctx context.Context, vol config.Volume) VolumeStats {
	stats := VolumeStats{Label: vol.Label, Path: vol.Path}
	vlog := i.logger.With(logging.String("volume", vol.Label))

	files, walkErrs := i.discover(vlog, vol.Path)
	stats.FilesFound = len(files)
	stats.FilesFailed += walkErrs
	if len(files) == 0 {
		return stats
	}
	i.planned += len(files)
	if i.progress != nil {
		i.progress.ChangeMax(i.planned)
	}

	destRoot := filepath.Join(i.cfg.Paths.StagingDir, vol.Label)

	var required int64
	pending := make(map[string]bool, len(files))
	for _, f := range files {
		dest := filepath.Join(destRoot, f.rel)
		if info, err := os.Stat(dest); err == nil && info.Size() == f.size {
			continue
		}
		pending[f.rel] = true
		required += f.size
	}
	if !i.dryRun && required > 0 {
		if err := i.guard.CheckCapacity(i.cfg.Paths.StagingDir, required); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", vol.Label, err))
			vlog.Error("volume skipped, not enough staging space", logging.Error(err))
			return stats
		}
	}

	var writer *manifest.Writer
	if !i.dryRun {
		var err error
		writer, err = manifest.NewWriter(ManifestPath(i.cfg, vol.Label))
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", vol.Label, err))
			return stats
		}
		defer writer.Close()
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", vol.Label, err))
			return stats
		}
		i.bump()

		if !pending[f.rel] {
			stats.FilesStaged++
			continue
		}
		dest := filepath.Join(destRoot, f.rel)
		if i.dryRun {
			vlog.Info("dry-run: would stage",
				logging.String("src", f.path), logging.String("dest", dest))
			stats.FilesCopied++
			stats.BytesCopied += f.size
			continue
		}
		if err := i.stageOne(f.path, dest, writer); err != nil {
			stats.FilesFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: [%s] %v", f.path, faults.Class(err), err))
			vlog.Warn("file not staged",
				logging.String(logging.FieldPath, f.path), logging.Error(err))
			continue
		}
		stats.FilesCopied++
		stats.BytesCopied += f.size
	}

	vlog.Info("volume ingested",
		logging.Int("files_copied", stats.FilesCopied),
		logging.Int("files_staged", stats.FilesStaged),
		logging.Int("files_failed", stats.FilesFailed),
		logging.Int64("bytes_copied", stats.BytesCopied),
	)
	return stats
}

// stageOne performs one verified copy into the staging tree and records
// the resulting hash in the volume's manifest.
func (i *Ingester) stageOne(src, dest string, writer *manifest.Writer) error {
	if err := i.guard.EnsureWritable(i.cfg.Paths.StagingDir, dest); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return faults.Wrap(faults.ErrTransient, "ingest", "create staging directory", dest, err)
	}
	hash, err := fileutil.CopyFileVerified(src, dest, "")
	if err != nil {
		return faults.Wrap(faults.ErrIntegrity, "ingest", "verified copy", src, err)
	}
	if err := writer.Append(manifest.Entry{ContentHash: hash, Path: dest}); err != nil {
		return faults.Wrap(faults.ErrTransient, "ingest", "append manifest", dest, err)
	}
	return nil
}

type found struct {
	path string
	rel  string
	size int64
}

// discover enumerates the volume's media files with the same hidden-dir
// and extension rules as the scanner, sorted by relative path.
func (i *Ingester) discover(logger *slog.Logger, root string) ([]found, int) {
	var files []found
	walkErrs := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk error", logging.String(logging.FieldPath, path), logging.Error(err))
			walkErrs++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if isHiddenName(d.Name()) && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !i.allowed[media.NormalizeExtension(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			walkErrs++
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			walkErrs++
			return nil
		}
		files = append(files, found{path: path, rel: rel, size: info.Size()})
		return nil
	})
	sort.Slice(files, func(a, b int) bool { return files[a].rel < files[b].rel })
	return files, walkErrs
}

func (i *Ingester) bump() {
	if i.progress != nil {
		_ = i.progress.Add(1)
	}
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "."
}
