package quality

import (
	"testing"

	"curator/internal/config"
	"curator/internal/media"
)

func newScorer() *Scorer {
	return NewScorer(config.Default().Quality)
}

func rescored(s *Scorer, path, ext string, size int64) media.File {
	f := media.File{Path: path, Extension: ext, SizeBytes: size}
	s.Rescore(&f)
	return f
}

func TestRawOutranksJPEGTiers(t *testing.T) {
	s := newScorer()

	raw := rescored(s, "/staging/sdb1/2023/Wedding/a.CR2", "CR2", 24<<20)
	highRes := rescored(s, "/staging/sdb1/Wedding_JPEG/b.jpg", "jpg", 8<<20)
	compressed := rescored(s, "/staging/sdb1/Backup/Old/c.jpg", "jpg", 3<<20)

	if !(raw.Score > highRes.Score && highRes.Score > compressed.Score) {
		t.Fatalf("ordering broken: raw=%d highRes=%d compressed=%d",
			raw.Score, highRes.Score, compressed.Score)
	}
}

func TestOrganizedOutranksBackup(t *testing.T) {
	s := newScorer()
	organized := rescored(s, "/staging/sdb1/2023/Vacation/x.jpg", "jpg", 2<<20)
	backup := rescored(s, "/staging/sdb1/Backup/x.jpg", "jpg", 2<<20)
	if organized.Score <= backup.Score {
		t.Fatalf("organized=%d should beat backup=%d", organized.Score, backup.Score)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newScorer()
	f := rescored(s, "/staging/sdb1/Photos/a.heic", "heic", 4<<20)
	for i := 0; i < 5; i++ {
		if again := rescored(s, "/staging/sdb1/Photos/a.heic", "heic", 4<<20); again.Score != f.Score {
			t.Fatalf("score changed between runs: %d vs %d", f.Score, again.Score)
		}
	}
}

func TestScoreClamped(t *testing.T) {
	cfg := config.Default().Quality
	cfg.BaseScore = 95
	s := NewScorer(cfg)
	f := media.File{
		Path:      "/staging/sdb1/2023/Photos/a.cr2",
		Extension: "cr2",
		SizeBytes: 40 << 20,
		Attributes: media.QualityAttributes{
			PixelCount:    50_000_000,
			EncodeQuality: 99,
			ColorBitDepth: 48,
			Metadata:      media.MetadataComplete,
		},
	}
	s.Rescore(&f)
	if f.Score != 100 {
		t.Fatalf("score not clamped to 100: %d", f.Score)
	}

	cfg.BaseScore = 0
	s = NewScorer(cfg)
	junk := media.File{Path: "/staging/sdb1/temp/a.bin", Extension: "bin", Attributes: media.QualityAttributes{EncodeQuality: 10}}
	s.Rescore(&junk)
	if junk.Score < 0 {
		t.Fatalf("score below zero: %d", junk.Score)
	}
}

func TestVideoTiers(t *testing.T) {
	s := newScorer()

	uhd := media.File{Path: "/staging/v/a.mp4", Extension: "mp4", SizeBytes: 50 << 20,
		Attributes: media.QualityAttributes{PixelCount: 3840 * 2160}}
	s.Rescore(&uhd)

	sd := rescored(s, "/staging/v/b.mp4", "mp4", 20<<20)

	if uhd.Score <= sd.Score {
		t.Fatalf("4K video %d should beat SD video %d", uhd.Score, sd.Score)
	}
}

func TestEncodeQualityBonus(t *testing.T) {
	s := newScorer()
	base := rescored(s, "/staging/p/a.jpg", "jpg", 1<<20)

	high := media.File{Path: "/staging/p/a.jpg", Extension: "jpg", SizeBytes: 1 << 20,
		Attributes: media.QualityAttributes{EncodeQuality: 97}}
	s.Rescore(&high)

	low := media.File{Path: "/staging/p/a.jpg", Extension: "jpg", SizeBytes: 1 << 20,
		Attributes: media.QualityAttributes{EncodeQuality: 60}}
	s.Rescore(&low)

	if high.Score <= base.Score {
		t.Fatalf("high encode quality %d should beat unknown %d", high.Score, base.Score)
	}
	if low.Score >= base.Score {
		t.Fatalf("low encode quality %d should fall below unknown %d", low.Score, base.Score)
	}
}
