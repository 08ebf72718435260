package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"curator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per
// test: one scan root inside a staging tree, library and backup outside
// it, dry-run off, and a small worker pool.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.SourceRoots = []string{filepath.Join(base, "staging", "vol1")}
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backup")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Safety.MinFreeSpaceGiB = 0
	cfgVal.Safety.DryRun = false
	cfgVal.Process.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, root := range cfgVal.Paths.SourceRoots {
		if err := os.MkdirAll(root, 0o755); err != nil {
			t.Fatalf("create scan root %s: %v", root, err)
		}
	}
	return builder.cfg
}

// WithSourceRoots overrides the scan roots on the test config.
func WithSourceRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.SourceRoots = roots
	}
}

// WithDryRun flips the dry-run toggle on the test config.
func WithDryRun(dryRun bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Safety.DryRun = dryRun
	}
}

// WithBackup enables backup-before-removal on the test config.
func WithBackup() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Safety.BackupBeforeRemoval = true
	}
}
