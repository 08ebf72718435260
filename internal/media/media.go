// Package media defines the file records flowing through the pipeline
// and the classification helpers that derive scoring signals from a
// file's extension and containing path.
package media

import (
	"path/filepath"
	"strings"
	"time"
)

// FormatClass buckets a file by container format for scoring.
type FormatClass string

const (
	FormatRAW   FormatClass = "raw"
	FormatJPEG  FormatClass = "jpeg"
	FormatPNG   FormatClass = "png"
	FormatHEIC  FormatClass = "heic"
	FormatVideo FormatClass = "video"
	FormatOther FormatClass = "other"
)

// MetadataClass describes how complete a file's embedded metadata is.
type MetadataClass string

const (
	MetadataComplete MetadataClass = "complete"
	MetadataPartial  MetadataClass = "partial"
	MetadataMinimal  MetadataClass = "minimal"
)

// FolderClass is the coarse categorization of a file's containing path.
type FolderClass string

const (
	FolderOrganized  FolderClass = "organized"
	FolderMeaningful FolderClass = "meaningful"
	FolderNeutral    FolderClass = "neutral"
	FolderBackup     FolderClass = "backup"
	FolderJunk       FolderClass = "junk"
)

// QualityAttributes holds the intrinsic signals the scorer consumes.
// Zero values mean unknown; the scorer treats unknown as neutral.
type QualityAttributes struct {
	Format        FormatClass
	PixelCount    int64
	EncodeQuality int // JPEG quality percent, 0 when unknown
	ColorBitDepth int
	Metadata      MetadataClass
}

// File is one physical media file at a point in time. ContentHash is the
// SHA-256 of the full byte stream and the content-addressing key: equal
// hashes are treated as byte-identical.
type File struct {
	Path        string
	ContentHash string
	SizeBytes   int64
	ModTime     time.Time
	Extension   string
	Attributes  QualityAttributes
	FolderClass FolderClass
	Score       int
}

// Name returns the file name without its directory.
func (f File) Name() string {
	return filepath.Base(f.Path)
}

var rawExtensions = map[string]struct{}{
	"cr2": {}, "cr3": {}, "nef": {}, "arw": {}, "dng": {},
	"raf": {}, "orf": {}, "rw2": {}, "pef": {}, "srw": {}, "x3f": {},
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mov": {}, "avi": {}, "mkv": {}, "m4v": {}, "mts": {},
}

// NormalizeExtension lowercases an extension and strips the leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// ClassifyFormat maps a normalized extension to its format class.
func ClassifyFormat(ext string) FormatClass {
	ext = NormalizeExtension(ext)
	if _, ok := rawExtensions[ext]; ok {
		return FormatRAW
	}
	if _, ok := videoExtensions[ext]; ok {
		return FormatVideo
	}
	switch ext {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "heic", "heif":
		return FormatHEIC
	default:
		return FormatOther
	}
}

// FolderKeywords configures path-segment matching for ClassifyFolder.
// Keywords are matched case-insensitively against every directory segment
// of the file's parent path.
type FolderKeywords struct {
	Organized  []string
	Meaningful []string
	Backup     []string
	Junk       []string
}

// ClassifyFolder derives the folder-context class from the file's parent
// directories. Backup and junk matches win over organized ones so a
// "Backup/2023" path is still penalized; among positive classes the most
// specific match wins.
func ClassifyFolder(path string, keywords FolderKeywords) FolderClass {
	segments := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")

	matched := FolderNeutral
	for _, segment := range segments {
		segment = strings.ToLower(segment)
		if segment == "" {
			continue
		}
		if matchesAny(segment, keywords.Junk) {
			return FolderJunk
		}
		if matchesAny(segment, keywords.Backup) {
			matched = FolderBackup
			continue
		}
		if matched == FolderBackup {
			// A backup ancestor taints everything below it.
			continue
		}
		if matchesAny(segment, keywords.Organized) || containsYear(segment) {
			matched = FolderOrganized
			continue
		}
		if matched != FolderOrganized && matchesAny(segment, keywords.Meaningful) {
			matched = FolderMeaningful
		}
	}
	return matched
}

func matchesAny(segment string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(segment, keyword) {
			return true
		}
	}
	return false
}

// containsYear reports whether the segment names a plausible photo year,
// which counts as organized structure (e.g. "2023" or "2023-06 Wedding").
func containsYear(segment string) bool {
	for i := 0; i+4 <= len(segment); i++ {
		if segment[i] != '1' && segment[i] != '2' {
			continue
		}
		digits := 0
		for j := i; j < len(segment) && j < i+4; j++ {
			if segment[j] < '0' || segment[j] > '9' {
				break
			}
			digits++
		}
		if digits != 4 {
			continue
		}
		if year := segment[i : i+4]; year >= "1900" && year <= "2199" {
			if i+4 == len(segment) || segment[i+4] < '0' || segment[i+4] > '9' {
				return true
			}
		}
	}
	return false
}
