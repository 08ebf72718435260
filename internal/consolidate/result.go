package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"curator/internal/catalog"
	"curator/internal/fileutil"
	"curator/internal/logging"
)

// Result is the terminal artifact of one executor run.
type Result struct {
	RunID             string    `json:"run_id"`
	DryRun            bool      `json:"dry_run"`
	Success           bool      `json:"success"`
	FilesKept         int       `json:"files_kept"`
	FilesAlreadyKept  int       `json:"files_already_kept"`
	FilesRemoved      int       `json:"files_removed"`
	FilesSkipped      int       `json:"files_skipped"`
	GroupsCompleted   int       `json:"groups_completed"`
	GroupsFailed      int       `json:"groups_failed"`
	GroupsAlreadyDone int       `json:"groups_already_done"`
	BytesSaved        int64     `json:"bytes_saved"`
	Errors            []string  `json:"errors,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

type reportDocument struct {
	Result
	LibraryDir  string   `json:"library_dir"`
	StagingDir  string   `json:"staging_dir"`
	BackupDir   string   `json:"backup_dir,omitempty"`
	SourceRoots []string `json:"source_roots"`
}

// finishRun persists the run in the catalog and writes the structured
// JSON report consumed by the orchestration layer.
func (e *Executor) finishRun(ctx context.Context, logger *slog.Logger, result *Result) error {
	report := catalog.RunReport{
		RunID:        result.RunID,
		DryRun:       result.DryRun,
		FilesKept:    int64(result.FilesKept + result.FilesAlreadyKept),
		FilesRemoved: int64(result.FilesRemoved),
		FilesSkipped: int64(result.FilesSkipped),
		BytesSaved:   result.BytesSaved,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
	}
	if err := e.store.InsertRunReport(ctx, report); err != nil {
		return err
	}

	doc := reportDocument{
		Result:      *result,
		LibraryDir:  e.cfg.Paths.LibraryDir,
		StagingDir:  e.cfg.Paths.StagingDir,
		BackupDir:   e.cfg.Paths.BackupDir,
		SourceRoots: e.cfg.Paths.SourceRoots,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	path := ReportPath(e.cfg.Paths.ReportDir, result.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}

	logger.Info("run finished",
		logging.Bool("dry_run", result.DryRun),
		logging.Bool("success", result.Success),
		logging.Int("files_kept", result.FilesKept),
		logging.Int("files_removed", result.FilesRemoved),
		logging.Int("files_skipped", result.FilesSkipped),
		logging.String("bytes_saved", humanize.IBytes(uint64(result.BytesSaved))),
		logging.String("report", path),
	)
	return nil
}

// ReportPath names the JSON report file for a run.
func ReportPath(reportDir, runID string) string {
	return filepath.Join(reportDir, fmt.Sprintf("run-%s.json", runID))
}
