package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIngest(); err != nil {
		return err
	}
	c.normalizeScanner()
	c.normalizeQuality()
	c.normalizeProcess()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BackupDir) == "" {
		c.Paths.BackupDir = defaultBackupDir
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}

	roots := make([]string, 0, len(c.Paths.SourceRoots))
	for _, root := range c.Paths.SourceRoots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.source_roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Paths.SourceRoots = roots
	return nil
}

func (c *Config) normalizeIngest() error {
	volumes := make([]Volume, 0, len(c.Ingest.Volumes))
	for _, vol := range c.Ingest.Volumes {
		path := strings.TrimSpace(vol.Path)
		if path == "" {
			continue
		}
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("ingest.volumes: %w", err)
		}
		label := strings.TrimSpace(vol.Label)
		if label == "" {
			label = filepath.Base(expanded)
		}
		volumes = append(volumes, Volume{Path: expanded, Label: label})
	}
	c.Ingest.Volumes = volumes
	return nil
}

func (c *Config) normalizeScanner() {
	c.Scanner.PhotoExtensions = normalizeExtensions(c.Scanner.PhotoExtensions)
	c.Scanner.VideoExtensions = normalizeExtensions(c.Scanner.VideoExtensions)
}

func (c *Config) normalizeQuality() {
	defaults := Default().Quality
	if c.Quality.FormatScores == nil {
		c.Quality.FormatScores = defaults.FormatScores
	}
	if c.Quality.FolderBonuses == nil {
		c.Quality.FolderBonuses = defaults.FolderBonuses
	}
	c.Quality.OrganizedKeywords = lowerAll(c.Quality.OrganizedKeywords)
	c.Quality.MeaningfulKeywords = lowerAll(c.Quality.MeaningfulKeywords)
	c.Quality.BackupKeywords = lowerAll(c.Quality.BackupKeywords)
	c.Quality.JunkKeywords = lowerAll(c.Quality.JunkKeywords)
}

func (c *Config) normalizeProcess() {
	if c.Process.Workers <= 0 {
		c.Process.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
