// Package quality computes the 0-100 quality score used to rank the
// members of a duplicate group. Scoring is a pure function of a file's
// attributes and path; the weights come from configuration, with the
// ordering guarantees (RAW above JPEG tiers, organized folders above
// backup folders) enforced at config load.
package quality

import (
	"curator/internal/config"
	"curator/internal/media"
)

// Scorer applies configured weights to media files.
type Scorer struct {
	cfg config.Quality
}

// NewScorer builds a scorer from validated configuration.
func NewScorer(cfg config.Quality) *Scorer {
	return &Scorer{cfg: cfg}
}

// Keywords returns the folder keyword classes in the form the media
// package consumes.
func (s *Scorer) Keywords() media.FolderKeywords {
	return media.FolderKeywords{
		Organized:  s.cfg.OrganizedKeywords,
		Meaningful: s.cfg.MeaningfulKeywords,
		Backup:     s.cfg.BackupKeywords,
		Junk:       s.cfg.JunkKeywords,
	}
}

// Score computes the quality score for a file. Deterministic for
// identical input; no side effects.
func (s *Scorer) Score(f media.File) int {
	score := s.cfg.BaseScore

	score += s.formatBonus(f)
	score += s.resolutionBonus(f.Attributes.PixelCount)
	score += s.encodeBonus(f.Attributes.EncodeQuality)
	if f.Attributes.ColorBitDepth >= 24 {
		score += s.cfg.ColorDepthBonus
	}
	score += s.metadataBonus(f.Attributes.Metadata)
	score += s.folderBonus(f.FolderClass)

	return clamp(score, 0, 100)
}

// Rescore fills in the derived fields (format class, folder class, score)
// of a file in place.
func (s *Scorer) Rescore(f *media.File) {
	f.Extension = media.NormalizeExtension(f.Extension)
	if f.Attributes.Format == "" {
		f.Attributes.Format = media.ClassifyFormat(f.Extension)
	}
	if f.FolderClass == "" {
		f.FolderClass = media.ClassifyFolder(f.Path, s.Keywords())
	}
	f.Score = s.Score(*f)
}

func (s *Scorer) formatBonus(f media.File) int {
	scores := s.cfg.FormatScores
	switch f.Attributes.Format {
	case media.FormatRAW:
		return scores[config.FormatRAW]
	case media.FormatJPEG:
		if f.SizeBytes > int64(s.cfg.PhotoLargeMB)*1024*1024 {
			return scores[config.FormatHighResJPEG]
		}
		// Scale the standard-JPEG bonus by size within the tier so larger
		// encodes of the same shot outrank smaller ones.
		bonus := scores[config.FormatJPEG]
		if f.SizeBytes > int64(s.cfg.PhotoLargeMB)*1024*1024/2 {
			bonus += (scores[config.FormatHighResJPEG] - scores[config.FormatJPEG]) / 2
		}
		return bonus
	case media.FormatPNG:
		return scores[config.FormatPNG]
	case media.FormatHEIC:
		return scores[config.FormatHEIC]
	case media.FormatVideo:
		switch {
		case f.Attributes.PixelCount >= 3840*2160:
			return scores[config.FormatVideo4K]
		case f.SizeBytes > int64(s.cfg.VideoLargeMB)*1024*1024:
			return scores[config.FormatVideoHD]
		default:
			return scores[config.FormatVideoSD]
		}
	default:
		return scores[config.FormatOther]
	}
}

// resolutionBonus scales with pixel count, saturating at the configured
// maximum around 24 megapixels.
func (s *Scorer) resolutionBonus(pixels int64) int {
	if pixels <= 0 || s.cfg.ResolutionMaxBonus <= 0 {
		return 0
	}
	const saturationPixels = 24_000_000
	bonus := int(pixels * int64(s.cfg.ResolutionMaxBonus) / saturationPixels)
	if bonus > s.cfg.ResolutionMaxBonus {
		bonus = s.cfg.ResolutionMaxBonus
	}
	return bonus
}

func (s *Scorer) encodeBonus(quality int) int {
	switch {
	case quality <= 0:
		return 0
	case quality >= 95:
		return s.cfg.EncodeHighBonus
	case quality >= 85:
		return s.cfg.EncodeMediumBonus
	case quality < 70:
		return s.cfg.EncodeLowPenalty
	default:
		return 0
	}
}

func (s *Scorer) metadataBonus(class media.MetadataClass) int {
	switch class {
	case media.MetadataComplete:
		return s.cfg.MetadataCompleteBonus
	case media.MetadataPartial:
		return s.cfg.MetadataPartialBonus
	default:
		return 0
	}
}

func (s *Scorer) folderBonus(class media.FolderClass) int {
	bonuses := s.cfg.FolderBonuses
	switch class {
	case media.FolderOrganized:
		return bonuses[config.FolderOrganized]
	case media.FolderMeaningful:
		return bonuses[config.FolderMeaningful]
	case media.FolderBackup:
		return bonuses[config.FolderBackup]
	case media.FolderJunk:
		return bonuses[config.FolderJunk]
	default:
		return bonuses[config.FolderNeutral]
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
