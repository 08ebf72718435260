package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration. SourceRoots are the read-only
// volumes being consolidated; StagingDir is the only tree destructive
// operations may touch.
type Paths struct {
	SourceRoots []string `toml:"source_roots"`
	StagingDir  string   `toml:"staging_dir"`
	LibraryDir  string   `toml:"library_dir"`
	BackupDir   string   `toml:"backup_dir"`
	LogDir      string   `toml:"log_dir"`
	ReportDir   string   `toml:"report_dir"`
}

// Volume describes one source drive to ingest. Label names the staging
// subdirectory the drive is copied into; an empty label defaults to the
// base name of the path.
type Volume struct {
	Path  string `toml:"path"`
	Label string `toml:"label"`
}

// Ingest lists the source volumes the ingest command copies into the
// staging tree. The volumes themselves are read-only.
type Ingest struct {
	Volumes []Volume `toml:"volumes"`
}

// Scanner contains the extension allow-list for the manifest scan.
type Scanner struct {
	PhotoExtensions []string `toml:"photo_extensions"`
	VideoExtensions []string `toml:"video_extensions"`
}

// Quality contains the scoring weights. Every weight is operator
// configuration; validation only enforces the relative ordering the
// ranking depends on (RAW above JPEG tiers, organized above backup).
type Quality struct {
	BaseScore             int            `toml:"base_score"`
	FormatScores          map[string]int `toml:"format_scores"`
	FolderBonuses         map[string]int `toml:"folder_bonuses"`
	ResolutionMaxBonus    int            `toml:"resolution_max_bonus"`
	EncodeHighBonus       int            `toml:"encode_high_bonus"`
	EncodeMediumBonus     int            `toml:"encode_medium_bonus"`
	EncodeLowPenalty      int            `toml:"encode_low_penalty"`
	ColorDepthBonus       int            `toml:"color_depth_bonus"`
	MetadataCompleteBonus int            `toml:"metadata_complete_bonus"`
	MetadataPartialBonus  int            `toml:"metadata_partial_bonus"`
	PhotoLargeMB          int            `toml:"photo_large_mb"`
	VideoLargeMB          int            `toml:"video_large_mb"`
	OrganizedKeywords     []string       `toml:"organized_keywords"`
	MeaningfulKeywords    []string       `toml:"meaningful_keywords"`
	BackupKeywords        []string       `toml:"backup_keywords"`
	JunkKeywords          []string       `toml:"junk_keywords"`
}

// Safety contains the guard rails applied before destructive phases.
type Safety struct {
	MinFreeSpaceGiB     int  `toml:"min_free_space_gib"`
	MaxDuplicatePercent int  `toml:"max_duplicate_percent"`
	BackupBeforeRemoval bool `toml:"backup_before_removal"`
	DryRun              bool `toml:"dry_run"`
}

// Process contains worker pool sizing. Workers of zero means one worker
// per available CPU.
type Process struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for curator.
//
// Configuration sections by subsystem:
//   - Paths: source roots, staging/library/backup/log directories
//   - Ingest: source volumes copied into the staging tree
//   - Scanner: media extension allow-list
//   - Quality: scoring weights and folder keyword classes
//   - Safety: free-space margin, duplicate warning threshold, backup and
//     dry-run toggles
//   - Process: worker pool sizing
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Ingest  Ingest  `toml:"ingest"`
	Scanner Scanner `toml:"scanner"`
	Quality Quality `toml:"quality"`
	Safety  Safety  `toml:"safety"`
	Process Process `toml:"process"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curator/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curator.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
// Source roots are deliberately excluded; they are never created or
// written to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.LibraryDir, c.Paths.LogDir, c.Paths.ReportDir}
	if c.Safety.BackupBeforeRemoval && strings.TrimSpace(c.Paths.BackupDir) != "" {
		dirs = append(dirs, c.Paths.BackupDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AllExtensions returns the combined, normalized extension allow-list.
func (c *Config) AllExtensions() []string {
	all := make([]string, 0, len(c.Scanner.PhotoExtensions)+len(c.Scanner.VideoExtensions))
	all = append(all, c.Scanner.PhotoExtensions...)
	all = append(all, c.Scanner.VideoExtensions...)
	return all
}

// MinFreeSpaceBytes converts the configured margin to bytes.
func (c *Config) MinFreeSpaceBytes() int64 {
	return int64(c.Safety.MinFreeSpaceGiB) * 1024 * 1024 * 1024
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
