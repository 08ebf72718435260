package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/manifest"
)

func newTestScanner(t *testing.T, roots ...string) (*Scanner, *catalog.Store, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.SourceRoots = roots
	cfg.Paths.ReportDir = t.TempDir()
	cfg.Process.Workers = 2

	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(&cfg, store, logging.NewNop()), store, &cfg
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunHashesAndRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "vacation", "img_001.jpg"), []byte("photo-a"))
	writeFile(t, filepath.Join(root, "vacation", "clip.mp4"), []byte("video-a"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("not media"))
	writeFile(t, filepath.Join(root, ".hidden", "skipped.jpg"), []byte("hidden"))

	s, store, _ := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesHashed != 2 {
		t.Fatalf("expected 2 hashed files, got %d", result.FilesHashed)
	}

	want := sha256.Sum256([]byte("photo-a"))
	rec, err := store.GetFile(context.Background(), filepath.Join(root, "vacation", "img_001.jpg"))
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if rec == nil {
		t.Fatal("jpg not recorded")
	}
	if rec.ContentHash != hex.EncodeToString(want[:]) {
		t.Fatalf("wrong hash recorded: %s", rec.ContentHash)
	}
	if rec.Extension != "jpg" {
		t.Fatalf("wrong extension: %q", rec.Extension)
	}
	if rec.SourceRoot != root {
		t.Fatalf("wrong source root: %q", rec.SourceRoot)
	}
}

func TestRunWritesManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), []byte("aaa"))
	writeFile(t, filepath.Join(root, "b.jpg"), []byte("bbb"))

	s, _, cfg := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ManifestPath != ManifestPath(cfg) {
		t.Fatalf("unexpected manifest path %s", result.ManifestPath)
	}
	entries, err := manifest.Load(result.ManifestPath)
	if err != nil {
		t.Fatalf("Load manifest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 manifest entries, got %d", len(entries))
	}
}

func TestRunResumeSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.jpg")
	writeFile(t, path, []byte("stable"))

	s, _, _ := newTestScanner(t, root)
	first, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.FilesHashed != 1 || first.FilesSkipped != 0 {
		t.Fatalf("first run counters: %+v", first)
	}

	second, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.FilesHashed != 0 || second.FilesSkipped != 1 {
		t.Fatalf("expected resume skip, got %+v", second)
	}

	// A content change with a new mtime invalidates the seen-set entry.
	writeFile(t, path, []byte("changed!"))
	if err := os.Chtimes(path, time.Now(), time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	third, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.FilesHashed != 1 {
		t.Fatalf("expected re-hash after change, got %+v", third)
	}
}

func TestRunCountsUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	good := filepath.Join(root, "good.jpg")
	bad := filepath.Join(root, "bad.jpg")
	writeFile(t, good, []byte("fine"))
	writeFile(t, bad, []byte("locked"))
	if err := os.Chmod(bad, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	s, store, _ := newTestScanner(t, root)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesHashed != 1 || result.FilesFailed != 1 {
		t.Fatalf("expected 1 hashed and 1 failed, got %+v", result)
	}
	rec, err := store.GetFile(context.Background(), bad)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatal("unreadable file must not enter the catalog")
	}
}

func TestRunPerRootStats(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeFile(t, filepath.Join(rootA, "a.jpg"), []byte("a"))
	writeFile(t, filepath.Join(rootB, "b.jpg"), []byte("b"))
	writeFile(t, filepath.Join(rootB, "c.jpg"), []byte("c"))

	s, _, _ := newTestScanner(t, rootA, rootB)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Roots) != 2 {
		t.Fatalf("expected stats for 2 roots, got %d", len(result.Roots))
	}
	byRoot := map[string]RootStats{}
	for _, st := range result.Roots {
		byRoot[st.Root] = st
	}
	if byRoot[rootA].FilesHashed != 1 || byRoot[rootB].FilesHashed != 2 {
		t.Fatalf("per-root counts wrong: %+v", result.Roots)
	}
}

func TestRunMissingRootFails(t *testing.T) {
	s, _, _ := newTestScanner(t, filepath.Join(t.TempDir(), "nope"))
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing source root")
	}
}
