package catalog

import (
	"context"
	"fmt"
	"time"
)

// InsertRunReport appends the aggregate result of a consolidation run.
// Reports are append-only across resumed runs.
func (s *Store) InsertRunReport(ctx context.Context, report RunReport) error {
	dryRun := 0
	if report.DryRun {
		dryRun = 1
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO run_reports (run_id, dry_run, files_kept, files_removed, files_skipped, bytes_saved, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		dryRun,
		report.FilesKept,
		report.FilesRemoved,
		report.FilesSkipped,
		report.BytesSaved,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run report %s: %w", report.RunID, err)
	}
	return nil
}

// RunReports returns past consolidation runs, newest first.
func (s *Store) RunReports(ctx context.Context) ([]RunReport, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT run_id, dry_run, files_kept, files_removed, files_skipped, bytes_saved, started_at, finished_at
         FROM run_reports ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list run reports: %w", err)
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var (
			report     RunReport
			dryRun     int
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(
			&report.RunID,
			&dryRun,
			&report.FilesKept,
			&report.FilesRemoved,
			&report.FilesSkipped,
			&report.BytesSaved,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run report: %w", err)
		}
		report.DryRun = dryRun != 0
		if report.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if report.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
