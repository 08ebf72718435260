// Package scanner walks the configured source roots, content-hashes every
// media file with a worker pool, and records the results in the catalog
// plus a checksum-tool compatible text manifest. Scans are resumable: a
// file whose size and mtime match its catalog record is not re-hashed.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/faults"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/manifest"
	"curator/internal/media"
)

// RootStats accumulates per-source-root counters.
type RootStats struct {
	Root         string
	FilesHashed  int
	FilesSkipped int
	FilesFailed  int
	BytesHashed  int64
}

// Result summarizes one scan run across all roots.
type Result struct {
	Roots        []RootStats
	FilesHashed  int
	FilesSkipped int
	FilesFailed  int
	BytesHashed  int64
	Duration     time.Duration
	ManifestPath string
}

type job struct {
	path string
	root string
	size int64
	mod  time.Time
}

type hashed struct {
	job  job
	hash string
}

// Scanner hashes media files under the configured source roots.
type Scanner struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	progress *progressbar.ProgressBar
	allowed  map[string]bool
}

// New builds a scanner over the given catalog store.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Scanner {
	allowed := make(map[string]bool, len(cfg.AllExtensions()))
	for _, ext := range cfg.AllExtensions() {
		allowed[ext] = true
	}
	return &Scanner{
		cfg:     cfg,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "scanner"),
		allowed: allowed,
	}
}

// WithProgress attaches a progress bar updated once per processed file.
func (s *Scanner) WithProgress(bar *progressbar.ProgressBar) *Scanner {
	s.progress = bar
	return s
}

// ManifestPath returns where the combined text manifest is written.
func ManifestPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ReportDir, "manifest.txt")
}

// Run walks every source root and hashes new or changed files. Unreadable
// files are counted and skipped; the scan itself only fails on catalog or
// manifest write errors, or on context cancellation.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{ManifestPath: ManifestPath(s.cfg)}

	jobs, walkErrs, err := s.discover(ctx, &result)
	if err != nil {
		return result, err
	}
	result.FilesFailed += walkErrs

	writer, err := manifest.NewWriter(result.ManifestPath)
	if err != nil {
		return result, faults.Wrap(faults.ErrTransient, "scanner", "open manifest", result.ManifestPath, err)
	}
	defer writer.Close()

	statsByRoot := make(map[string]*RootStats, len(s.cfg.Paths.SourceRoots))
	for _, root := range s.cfg.Paths.SourceRoots {
		statsByRoot[root] = &RootStats{Root: root}
	}

	workers := max(s.cfg.Process.Workers, 1)
	jobCh := make(chan job)
	hashedCh := make(chan hashed, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				hash, err := fileutil.HashFile(j.path)
				if err != nil {
					s.logger.Warn("skipping unreadable file",
						logging.String(logging.FieldPath, j.path),
						logging.Error(err),
					)
					hashedCh <- hashed{job: j}
					continue
				}
				hashedCh <- hashed{job: j, hash: hash}
			}
		}()
	}

	writerDone := make(chan error, 1)
	go func() {
		writerDone <- s.record(ctx, hashedCh, writer, statsByRoot)
	}()

	skips, feedErr := s.feed(ctx, jobs, jobCh)
	wg.Wait()
	close(hashedCh)
	if err := <-writerDone; err != nil {
		return result, err
	}
	if feedErr != nil {
		return result, feedErr
	}
	for root, n := range skips {
		statsByRoot[root].FilesSkipped += n
	}

	for _, root := range s.cfg.Paths.SourceRoots {
		st := statsByRoot[root]
		result.Roots = append(result.Roots, *st)
		result.FilesHashed += st.FilesHashed
		result.FilesSkipped += st.FilesSkipped
		result.FilesFailed += st.FilesFailed
		result.BytesHashed += st.BytesHashed
	}
	result.Duration = time.Since(start)

	s.logger.Info("scan complete",
		logging.Int("files_hashed", result.FilesHashed),
		logging.Int("files_skipped", result.FilesSkipped),
		logging.Int("files_failed", result.FilesFailed),
		logging.Int64("bytes_hashed", result.BytesHashed),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// discover walks all roots up front so the progress bar has a total and
// resume skips never occupy a hashing worker. Walk errors on individual
// entries are counted, not fatal; a missing root is fatal.
func (s *Scanner) discover(ctx context.Context, result *Result) ([]job, int, error) {
	var jobs []job
	walkErrs := 0
	for _, root := range s.cfg.Paths.SourceRoots {
		if _, err := os.Stat(root); err != nil {
			return nil, walkErrs, faults.Wrap(faults.ErrValidation, "scanner", "source root", root, err)
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Warn("walk error", logging.String(logging.FieldPath, path), logging.Error(err))
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
			if !s.allowed[media.NormalizeExtension(filepath.Ext(path))] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				walkErrs++
				return nil
			}
			jobs = append(jobs, job{path: path, root: root, size: info.Size(), mod: info.ModTime()})
			return nil
		})
		if err != nil {
			return nil, walkErrs, faults.Wrap(faults.ErrTransient, "scanner", "walk", root, err)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })
	if s.progress != nil {
		s.progress.ChangeMax(len(jobs))
	}
	return jobs, walkErrs, nil
}

// feed checks the resume seen-set and dispatches only new or changed
// files to the workers. Skip counts are returned rather than written into
// the shared stats, which the record goroutine owns until it finishes.
func (s *Scanner) feed(ctx context.Context, jobs []job, jobCh chan<- job) (map[string]int, error) {
	defer close(jobCh)
	skips := make(map[string]int)
	for _, j := range jobs {
		unchanged, err := s.store.HasUnchanged(ctx, j.path, j.size, j.mod)
		if err != nil {
			return skips, err
		}
		if unchanged {
			skips[j.root]++
			s.bump()
			continue
		}
		select {
		case jobCh <- j:
		case <-ctx.Done():
			return skips, ctx.Err()
		}
	}
	return skips, nil
}

// record is the single writer: it owns all catalog and manifest appends so
// the workers never contend on the database. After a write error it keeps
// draining the channel so the workers can finish.
func (s *Scanner) record(ctx context.Context, hashedCh <-chan hashed, writer *manifest.Writer, stats map[string]*RootStats) error {
	var firstErr error
	for h := range hashedCh {
		if firstErr != nil {
			continue
		}
		st := stats[h.job.root]
		if h.hash == "" {
			st.FilesFailed++
			s.bump()
			continue
		}
		rec := catalog.FileRecord{
			Path:        h.job.path,
			ContentHash: h.hash,
			SizeBytes:   h.job.size,
			ModTime:     h.job.mod,
			Extension:   media.NormalizeExtension(filepath.Ext(h.job.path)),
			SourceRoot:  h.job.root,
			ScannedAt:   time.Now().UTC(),
		}
		if err := s.store.UpsertFile(ctx, rec); err != nil {
			firstErr = faults.Wrap(faults.ErrTransient, "scanner", "record file", h.job.path, err)
			continue
		}
		if err := writer.Append(manifest.Entry{ContentHash: h.hash, Path: h.job.path}); err != nil {
			firstErr = faults.Wrap(faults.ErrTransient, "scanner", "append manifest", h.job.path, err)
			continue
		}
		st.FilesHashed++
		st.BytesHashed += h.job.size
		s.bump()
	}
	return firstErr
}

func (s *Scanner) bump() {
	if s.progress != nil {
		_ = s.progress.Add(1)
	}
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "."
}

// Summarize renders the per-root breakdown for log or report output.
func Summarize(result Result) string {
	var b strings.Builder
	for _, st := range result.Roots {
		fmt.Fprintf(&b, "%s: %d hashed, %d unchanged, %d failed\n",
			st.Root, st.FilesHashed, st.FilesSkipped, st.FilesFailed)
	}
	return b.String()
}
