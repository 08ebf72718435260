package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "curator.log")
	logger, err := New(Options{
		Level:            "debug",
		Format:           "console",
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("scan started", String("root", "/mnt/sdb1"), Int("workers", 4))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "scan started") {
		t.Fatalf("message missing from log: %q", content)
	}
	if !strings.Contains(content, "root=/mnt/sdb1") {
		t.Fatalf("attr missing from log: %q", content)
	}
}

func TestComponentLoggerPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curator.log")
	base, err := New(Options{Format: "console", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(base, "scanner").Info("worker pool ready")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[scanner]") {
		t.Fatalf("component prefix missing: %q", string(data))
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerSilent(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
