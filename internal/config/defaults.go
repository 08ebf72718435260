package config

const (
	defaultStagingDir = "~/.local/share/curator/incoming"
	defaultLibraryDir = "~/.local/share/curator/final"
	defaultBackupDir  = "~/.local/share/curator/backup"
	defaultLogDir     = "~/.local/share/curator/logs"
	defaultReportDir  = "~/.local/share/curator/reports"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultMinFreeSpaceGiB     = 100
	defaultMaxDuplicatePercent = 80
)

// Format score keys recognized by the quality scorer.
const (
	FormatRAW         = "raw"
	FormatHighResJPEG = "high_res_jpeg"
	FormatJPEG        = "standard_jpeg"
	FormatPNG         = "png"
	FormatHEIC        = "heic"
	FormatVideo4K     = "video_4k"
	FormatVideoHD     = "video_hd"
	FormatVideoSD     = "video_sd"
	FormatOther       = "other"
)

// Folder bonus keys recognized by the quality scorer.
const (
	FolderOrganized  = "organized"
	FolderMeaningful = "meaningful"
	FolderNeutral    = "neutral"
	FolderBackup     = "backup"
	FolderJunk       = "junk"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			BackupDir:  defaultBackupDir,
			LogDir:     defaultLogDir,
			ReportDir:  defaultReportDir,
		},
		Scanner: Scanner{
			PhotoExtensions: []string{
				"jpg", "jpeg", "png", "heic", "heif", "tif", "tiff",
				"cr2", "cr3", "nef", "arw", "dng", "raf", "orf", "rw2", "pef", "srw", "x3f",
			},
			VideoExtensions: []string{"mp4", "mov", "avi", "mkv", "m4v", "mts"},
		},
		Quality: Quality{
			BaseScore: 50,
			FormatScores: map[string]int{
				FormatRAW:         20,
				FormatHighResJPEG: 15,
				FormatJPEG:        5,
				FormatPNG:         10,
				FormatHEIC:        15,
				FormatVideo4K:     25,
				FormatVideoHD:     15,
				FormatVideoSD:     0,
				FormatOther:       0,
			},
			FolderBonuses: map[string]int{
				FolderOrganized:  10,
				FolderMeaningful: 5,
				FolderNeutral:    0,
				FolderBackup:     -10,
				FolderJunk:       -15,
			},
			ResolutionMaxBonus:    15,
			EncodeHighBonus:       10,
			EncodeMediumBonus:     5,
			EncodeLowPenalty:      -5,
			ColorDepthBonus:       3,
			MetadataCompleteBonus: 5,
			MetadataPartialBonus:  2,
			PhotoLargeMB:          5,
			VideoLargeMB:          100,
			OrganizedKeywords: []string{
				"photos", "pictures", "vacation", "wedding", "family", "events",
			},
			MeaningfulKeywords: []string{"holiday", "trip", "birthday"},
			BackupKeywords:     []string{"backup", "old", "copy", "duplicate", "archive"},
			JunkKeywords:       []string{"downloads", "temp", "tmp", "cache", "recycle"},
		},
		Safety: Safety{
			MinFreeSpaceGiB:     defaultMinFreeSpaceGiB,
			MaxDuplicatePercent: defaultMaxDuplicatePercent,
			DryRun:              true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
