package catalog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/catalog"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(path, hash string, size int64) catalog.FileRecord {
	return catalog.FileRecord{
		Path:        path,
		ContentHash: hash,
		SizeBytes:   size,
		ModTime:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Extension:   "jpg",
		SourceRoot:  "/mnt/sdb1",
	}
}

func TestUpsertFileIsDuplicateSafe(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/staging/sdb1/a.jpg", "aaaa", 100)
	if err := store.UpsertFile(ctx, rec); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	if err := store.UpsertFile(ctx, rec); err != nil {
		t.Fatalf("UpsertFile again: %v", err)
	}

	count, err := store.CountFiles(ctx)
	if err != nil {
		t.Fatalf("CountFiles: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestHasUnchanged(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rec := sampleRecord("/staging/sdb1/a.jpg", "aaaa", 100)
	if err := store.UpsertFile(ctx, rec); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}

	ok, err := store.HasUnchanged(ctx, rec.Path, rec.SizeBytes, rec.ModTime)
	if err != nil {
		t.Fatalf("HasUnchanged: %v", err)
	}
	if !ok {
		t.Fatal("expected unchanged file to be recognized")
	}

	ok, err = store.HasUnchanged(ctx, rec.Path, rec.SizeBytes+1, rec.ModTime)
	if err != nil {
		t.Fatalf("HasUnchanged: %v", err)
	}
	if ok {
		t.Fatal("size change should invalidate the seen-set entry")
	}
}

func TestFilesByHash(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, rec := range []catalog.FileRecord{
		sampleRecord("/staging/sdb1/z.jpg", "dead", 10),
		sampleRecord("/staging/sdb1/a.jpg", "dead", 10),
		sampleRecord("/staging/sdb1/b.jpg", "beef", 20),
	} {
		if err := store.UpsertFile(ctx, rec); err != nil {
			t.Fatalf("UpsertFile: %v", err)
		}
	}

	files, err := store.FilesByHash(ctx, "dead")
	if err != nil {
		t.Fatalf("FilesByHash: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len = %d, want 2", len(files))
	}
	if files[0].Path != "/staging/sdb1/a.jpg" {
		t.Fatalf("ordering by path broken: %s first", files[0].Path)
	}
}

func TestDecisionRoundTripAndOverwrite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := catalog.Decision{
		GroupHash:   "dead",
		Mode:        catalog.DecisionAuto,
		KeepPaths:   []string{"/staging/a.jpg"},
		RemovePaths: []string{"/staging/b.jpg", "/staging/c.jpg"},
	}
	if err := store.UpsertDecision(ctx, first); err != nil {
		t.Fatalf("UpsertDecision: %v", err)
	}

	second := first
	second.Mode = catalog.DecisionManual
	second.KeepPaths = []string{"/staging/a.jpg", "/staging/c.jpg"}
	second.RemovePaths = []string{"/staging/b.jpg"}
	if err := store.UpsertDecision(ctx, second); err != nil {
		t.Fatalf("UpsertDecision overwrite: %v", err)
	}

	got, err := store.GetDecision(ctx, "dead")
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got == nil {
		t.Fatal("decision missing")
	}
	if got.Mode != catalog.DecisionManual || len(got.KeepPaths) != 2 || len(got.RemovePaths) != 1 {
		t.Fatalf("overwrite not applied: %+v", got)
	}

	all, err := store.AllDecisions(ctx)
	if err != nil {
		t.Fatalf("AllDecisions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("decision duplicated on overwrite: %d rows", len(all))
	}
}

func TestGetDecisionUnresolved(t *testing.T) {
	store := openStore(t)
	got, err := store.GetDecision(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for unresolved group")
	}
}

func TestGroupStateTransitionsAndReset(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	d := catalog.Decision{
		GroupHash:   "dead",
		Mode:        catalog.DecisionAuto,
		KeepPaths:   []string{"/staging/a.jpg"},
		RemovePaths: []string{"/staging/b.jpg"},
	}
	if err := store.UpsertDecision(ctx, d); err != nil {
		t.Fatalf("UpsertDecision: %v", err)
	}

	if err := store.SetGroupState(ctx, "dead", catalog.StateCopyFailed, "hash mismatch"); err != nil {
		t.Fatalf("SetGroupState: %v", err)
	}
	got, err := store.GetDecision(ctx, "dead")
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got.State != catalog.StateCopyFailed || got.ErrorMessage != "hash mismatch" {
		t.Fatalf("state not persisted: %+v", got)
	}

	reset, err := store.ResetRetryableStates(ctx)
	if err != nil {
		t.Fatalf("ResetRetryableStates: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}
	got, _ = store.GetDecision(ctx, "dead")
	if got.State != catalog.StatePending {
		t.Fatalf("state after reset = %s", got.State)
	}

	if err := store.SetGroupState(ctx, "unknown", catalog.StateCompleted, ""); err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestRunReports(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	report := catalog.RunReport{
		RunID:        "run-1",
		DryRun:       true,
		FilesKept:    10,
		FilesRemoved: 4,
		BytesSaved:   1 << 20,
		StartedAt:    time.Now().Add(-time.Minute),
		FinishedAt:   time.Now(),
	}
	if err := store.InsertRunReport(ctx, report); err != nil {
		t.Fatalf("InsertRunReport: %v", err)
	}

	reports, err := store.RunReports(ctx)
	if err != nil {
		t.Fatalf("RunReports: %v", err)
	}
	if len(reports) != 1 || reports[0].RunID != "run-1" || !reports[0].DryRun {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestSchemaVersionGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	store.Close()

	// Reopening an initialized catalog succeeds.
	again, err := catalog.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}
