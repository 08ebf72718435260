package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fileColumns = "id, path, content_hash, size_bytes, mod_time, extension, source_root, scanned_at"

// UpsertFile records a hashed file. Re-recording the same path replaces
// the previous row, which keeps interrupted-and-resumed scans
// duplicate-safe.
func (s *Store) UpsertFile(ctx context.Context, rec FileRecord) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO files (path, content_hash, size_bytes, mod_time, extension, source_root, scanned_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
            content_hash = excluded.content_hash,
            size_bytes = excluded.size_bytes,
            mod_time = excluded.mod_time,
            extension = excluded.extension,
            source_root = excluded.source_root,
            scanned_at = excluded.scanned_at`,
		rec.Path,
		rec.ContentHash,
		rec.SizeBytes,
		rec.ModTime.UTC().Format(time.RFC3339Nano),
		rec.Extension,
		rec.SourceRoot,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", rec.Path, err)
	}
	return nil
}

// HasUnchanged reports whether a path is already cataloged with the same
// size and mtime; such files are skipped on re-scan instead of re-hashed.
func (s *Store) HasUnchanged(ctx context.Context, path string, sizeBytes int64, modTime time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM files WHERE path = ? AND size_bytes = ? AND mod_time = ?`,
		path,
		sizeBytes,
		modTime.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check file %s: %w", path, err)
	}
	return count > 0, nil
}

// GetFile fetches one manifest entry by path. Returns nil when absent.
func (s *Store) GetFile(ctx context.Context, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+fileColumns+` FROM files WHERE path = ?`,
		path,
	)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return rec, nil
}

// AllFiles returns every manifest entry ordered by path.
func (s *Store) AllFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+fileColumns+` FROM files ORDER BY path`,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// FilesByHash returns the manifest entries carrying one content hash,
// ordered by path.
func (s *Store) FilesByHash(ctx context.Context, hash string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+fileColumns+` FROM files WHERE content_hash = ? ORDER BY path`,
		hash,
	)
	if err != nil {
		return nil, fmt.Errorf("list files by hash: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CountFiles returns the number of manifest entries.
func (s *Store) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM files`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// DeleteFile drops a manifest entry, used after a duplicate is removed
// from the staging tree.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete file %s: %w", path, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*FileRecord, error) {
	var (
		rec       FileRecord
		modTime   string
		scannedAt string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Path,
		&rec.ContentHash,
		&rec.SizeBytes,
		&modTime,
		&rec.Extension,
		&rec.SourceRoot,
		&scannedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if rec.ModTime, err = time.Parse(time.RFC3339Nano, modTime); err != nil {
		return nil, fmt.Errorf("parse mod_time: %w", err)
	}
	if rec.ScannedAt, err = time.Parse(time.RFC3339Nano, scannedAt); err != nil {
		return nil, fmt.Errorf("parse scanned_at: %w", err)
	}
	return &rec, nil
}
