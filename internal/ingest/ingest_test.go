package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/config"
	"curator/internal/faults"
	"curator/internal/logging"
	"curator/internal/manifest"
	"curator/internal/safety"
)

type harness struct {
	cfg     *config.Config
	guard   *safety.Guard
	staging string
}

func newHarness(t *testing.T, volumes ...config.Volume) *harness {
	t.Helper()
	base := t.TempDir()
	staging := filepath.Join(base, "staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.StagingDir = staging
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Ingest.Volumes = volumes
	cfg.Safety.MinFreeSpaceGiB = 0
	cfg.Safety.DryRun = false

	guard := safety.NewGuard(&cfg, logging.NewNop()).
		WithStatfs(func(string) (uint64, uint64, error) { return 1 << 50, 1 << 50, nil })

	return &harness{cfg: &cfg, guard: guard, staging: staging}
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

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func TestRunCopiesVolumesIntoStaging(t *testing.T) {
	vol := t.TempDir()
	writeFile(t, filepath.Join(vol, "photos", "2023", "img.cr2"), []byte("raw-bytes"))
	writeFile(t, filepath.Join(vol, "clip.mp4"), []byte("video-bytes"))
	writeFile(t, filepath.Join(vol, "notes.txt"), []byte("not media"))
	writeFile(t, filepath.Join(vol, ".Trashes", "junk.jpg"), []byte("hidden"))

	h := newHarness(t, config.Volume{Path: vol, Label: "sdb1"})
	result, err := New(h.cfg, h.guard, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.VolumesProcessed != 1 || result.FilesCopied != 2 || result.FilesFailed != 0 {
		t.Fatalf("counters wrong: %+v", result)
	}

	for rel, content := range map[string]string{
		filepath.Join("photos", "2023", "img.cr2"): "raw-bytes",
		"clip.mp4": "video-bytes",
	} {
		data, err := os.ReadFile(filepath.Join(h.staging, "sdb1", rel))
		if err != nil {
			t.Fatalf("staged file %s missing: %v", rel, err)
		}
		if string(data) != content {
			t.Fatalf("staged content mismatch for %s", rel)
		}
	}
	if _, err := os.Stat(filepath.Join(h.staging, "sdb1", "notes.txt")); !os.IsNotExist(err) {
		t.Fatal("non-media file must not be staged")
	}
	if _, err := os.Stat(filepath.Join(h.staging, "sdb1", ".Trashes")); !os.IsNotExist(err) {
		t.Fatal("hidden directories must not be staged")
	}

	// Volume left untouched.
	if _, err := os.Stat(filepath.Join(vol, "clip.mp4")); err != nil {
		t.Fatal("source volume must never be modified")
	}

	entries, err := manifest.Load(ManifestPath(h.cfg, "sdb1"))
	if err != nil {
		t.Fatalf("ingest manifest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("manifest entries %d, want 2", len(entries))
	}
	want := hashOf([]byte("video-bytes"))
	foundClip := false
	for _, e := range entries {
		if filepath.Base(e.Path) == "clip.mp4" {
			foundClip = true
			if e.ContentHash != want {
				t.Fatalf("manifest hash %s, want %s", e.ContentHash, want)
			}
		}
	}
	if !foundClip {
		t.Fatal("manifest missing staged file")
	}
}

func TestRunResumesSkippingStagedFiles(t *testing.T) {
	vol := t.TempDir()
	writeFile(t, filepath.Join(vol, "a.jpg"), []byte("aaa"))
	writeFile(t, filepath.Join(vol, "b.jpg"), []byte("bbbb"))

	h := newHarness(t, config.Volume{Path: vol, Label: "usb"})
	ing := New(h.cfg, h.guard, logging.NewNop())
	first, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.FilesCopied != 2 {
		t.Fatalf("first run counters: %+v", first)
	}

	second, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.FilesCopied != 0 || second.FilesStaged != 2 {
		t.Fatalf("second run must skip staged files: %+v", second)
	}
}

func TestRunDryRunCopiesNothing(t *testing.T) {
	vol := t.TempDir()
	writeFile(t, filepath.Join(vol, "a.jpg"), []byte("aaa"))

	h := newHarness(t, config.Volume{Path: vol, Label: "usb"})
	ing := New(h.cfg, h.guard, logging.NewNop())
	ing.SetDryRun(true)
	result, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DryRun || result.FilesCopied != 1 {
		t.Fatalf("dry-run preview wrong: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(h.staging, "usb")); !os.IsNotExist(err) {
		t.Fatal("dry-run must not write into staging")
	}
}

func TestRunCapacityAbortsVolume(t *testing.T) {
	vol := t.TempDir()
	writeFile(t, filepath.Join(vol, "big.jpg"), []byte("sixteen-byte-load"))

	h := newHarness(t, config.Volume{Path: vol, Label: "usb"})
	h.guard.WithStatfs(func(string) (uint64, uint64, error) { return 1 << 30, 4, nil })

	result, err := New(h.cfg, h.guard, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesCopied != 0 {
		t.Fatalf("capacity abort must precede any copy: %+v", result)
	}
	if len(result.Errors) == 0 {
		t.Fatal("capacity abort must be reported")
	}
	if _, err := os.Stat(filepath.Join(h.staging, "usb")); !os.IsNotExist(err) {
		t.Fatal("nothing may be staged after a capacity abort")
	}
}

func TestRunSkipsInaccessibleVolume(t *testing.T) {
	vol := t.TempDir()
	writeFile(t, filepath.Join(vol, "a.jpg"), []byte("aaa"))
	missing := filepath.Join(t.TempDir(), "unplugged")

	h := newHarness(t,
		config.Volume{Path: missing, Label: "gone"},
		config.Volume{Path: vol, Label: "usb"},
	)
	result, err := New(h.cfg, h.guard, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.VolumesProcessed != 1 || result.FilesCopied != 1 {
		t.Fatalf("accessible volume must still be ingested: %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "not accessible") {
		t.Fatalf("missing volume must be reported: %+v", result.Errors)
	}
}

func TestRunRequiresConfiguredVolumes(t *testing.T) {
	h := newHarness(t)
	_, err := New(h.cfg, h.guard, logging.NewNop()).Run(context.Background())
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}
