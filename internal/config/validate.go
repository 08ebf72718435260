package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateSafety(); err != nil {
		return err
	}
	if err := c.validateProcess(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.LibraryDir == c.Paths.StagingDir {
		return errors.New("paths.library_dir must differ from paths.staging_dir")
	}
	if isWithin(c.Paths.LibraryDir, c.Paths.StagingDir) {
		return errors.New("paths.library_dir must not live inside paths.staging_dir")
	}
	// Removal only ever targets scanned files, and removal is confined
	// to the staging tree, so every scan root has to live inside it.
	for _, root := range c.Paths.SourceRoots {
		if !isWithin(root, c.Paths.StagingDir) {
			return fmt.Errorf("paths.source_roots: %q is outside the staging directory", root)
		}
	}
	return nil
}

// validateIngest checks the source volume list. Volumes are read-only
// and copied into staging_dir/<label>, so a volume inside the staging
// tree would copy onto itself and a label with a separator would escape
// its staging subdirectory.
func (c *Config) validateIngest() error {
	labels := make(map[string]bool, len(c.Ingest.Volumes))
	for _, vol := range c.Ingest.Volumes {
		if isWithin(vol.Path, c.Paths.StagingDir) {
			return fmt.Errorf("ingest.volumes: %q is inside the staging directory", vol.Path)
		}
		if strings.ContainsRune(vol.Label, '/') || vol.Label == ".." || vol.Label == "." {
			return fmt.Errorf("ingest.volumes: label %q must be a plain directory name", vol.Label)
		}
		if labels[vol.Label] {
			return fmt.Errorf("ingest.volumes: duplicate label %q", vol.Label)
		}
		labels[vol.Label] = true
	}
	return nil
}

func (c *Config) validateScanner() error {
	if len(c.Scanner.PhotoExtensions) == 0 && len(c.Scanner.VideoExtensions) == 0 {
		return errors.New("scanner: at least one photo or video extension must be configured")
	}
	return nil
}

// validateQuality enforces the ordering the keeper ranking depends on.
// Numbers are free for the operator to tune as long as RAW outranks both
// JPEG tiers, high-res JPEG outranks standard JPEG, and organized folders
// outrank backup folders.
func (c *Config) validateQuality() error {
	scores := c.Quality.FormatScores
	if scores[FormatRAW] <= scores[FormatHighResJPEG] {
		return errors.New("quality.format_scores: raw must score above high_res_jpeg")
	}
	if scores[FormatHighResJPEG] <= scores[FormatJPEG] {
		return errors.New("quality.format_scores: high_res_jpeg must score above standard_jpeg")
	}
	bonuses := c.Quality.FolderBonuses
	if bonuses[FolderOrganized] <= bonuses[FolderBackup] {
		return errors.New("quality.folder_bonuses: organized must score above backup")
	}
	if bonuses[FolderBackup] < bonuses[FolderJunk] {
		return errors.New("quality.folder_bonuses: backup must not score below junk")
	}
	if c.Quality.BaseScore < 0 || c.Quality.BaseScore > 100 {
		return errors.New("quality.base_score must be between 0 and 100")
	}
	if c.Quality.ResolutionMaxBonus < 0 {
		return errors.New("quality.resolution_max_bonus must not be negative")
	}
	if c.Quality.PhotoLargeMB <= 0 {
		return errors.New("quality.photo_large_mb must be positive")
	}
	if c.Quality.VideoLargeMB <= 0 {
		return errors.New("quality.video_large_mb must be positive")
	}
	return nil
}

func (c *Config) validateSafety() error {
	if c.Safety.MinFreeSpaceGiB < 0 {
		return errors.New("safety.min_free_space_gib must not be negative")
	}
	if c.Safety.MaxDuplicatePercent < 0 || c.Safety.MaxDuplicatePercent > 100 {
		return errors.New("safety.max_duplicate_percent must be between 0 and 100")
	}
	if c.Safety.BackupBeforeRemoval && strings.TrimSpace(c.Paths.BackupDir) == "" {
		return errors.New("paths.backup_dir must be set when safety.backup_before_removal is true")
	}
	return nil
}

func (c *Config) validateProcess() error {
	if c.Process.Workers < 1 || c.Process.Workers > 128 {
		return fmt.Errorf("process.workers must be between 1 and 128, got %d", c.Process.Workers)
	}
	return nil
}

func isWithin(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}
