// Package dupes groups catalog entries by content hash and ranks each
// group into a keeper and removable members.
package dupes

import (
	"context"
	"log/slog"
	"sort"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/media"
	"curator/internal/quality"
)

// Group is one set of byte-identical files. Members is sorted into the
// ranking order: score descending, then size descending, then path
// ascending. The first member is the keeper.
type Group struct {
	Hash              string
	Members           []media.File
	SpaceSavingsBytes int64
}

// Keeper returns the highest-ranked member.
func (g Group) Keeper() media.File {
	return g.Members[0]
}

// Removable returns every member except the keeper.
func (g Group) Removable() []media.File {
	return g.Members[1:]
}

// Analysis is the result of grouping the whole catalog.
type Analysis struct {
	Groups            []Group
	Unique            []media.File
	TotalFiles        int
	DuplicateFiles    int
	SpaceSavingsBytes int64
	DuplicatePercent  float64
	PercentExceeded   bool
}

// Grouper builds duplicate groups from the catalog.
type Grouper struct {
	cfg    *config.Config
	store  *catalog.Store
	scorer *quality.Scorer
	logger *slog.Logger
}

// New builds a grouper with a scorer from the configured weights.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Grouper {
	return &Grouper{
		cfg:    cfg,
		store:  store,
		scorer: quality.NewScorer(cfg.Quality),
		logger: logging.NewComponentLogger(logger, "dupes"),
	}
}

// Analyze reads every catalog record, scores it, and partitions the set
// into duplicate groups and unique files. The ranking inside each group
// is a total order, so the keeper does not depend on scan order.
func (g *Grouper) Analyze(ctx context.Context) (*Analysis, error) {
	records, err := g.store.AllFiles(ctx)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string][]media.File)
	for _, rec := range records {
		f := recordToFile(rec)
		g.scorer.Rescore(&f)
		byHash[rec.ContentHash] = append(byHash[rec.ContentHash], f)
	}

	analysis := &Analysis{TotalFiles: len(records)}
	for hash, members := range byHash {
		if len(members) < 2 {
			analysis.Unique = append(analysis.Unique, members[0])
			continue
		}
		sortMembers(members)
		group := Group{Hash: hash, Members: members}
		for _, m := range group.Removable() {
			group.SpaceSavingsBytes += m.SizeBytes
		}
		analysis.Groups = append(analysis.Groups, group)
		analysis.DuplicateFiles += len(group.Removable())
		analysis.SpaceSavingsBytes += group.SpaceSavingsBytes
	}

	sort.Slice(analysis.Unique, func(i, j int) bool {
		return analysis.Unique[i].Path < analysis.Unique[j].Path
	})
	sort.Slice(analysis.Groups, func(i, j int) bool {
		a, b := analysis.Groups[i], analysis.Groups[j]
		if a.SpaceSavingsBytes != b.SpaceSavingsBytes {
			return a.SpaceSavingsBytes > b.SpaceSavingsBytes
		}
		return a.Hash < b.Hash
	})

	if analysis.TotalFiles > 0 {
		analysis.DuplicatePercent = 100 * float64(analysis.DuplicateFiles) / float64(analysis.TotalFiles)
	}
	if limit := g.cfg.Safety.MaxDuplicatePercent; limit > 0 && analysis.DuplicatePercent > float64(limit) {
		analysis.PercentExceeded = true
		g.logger.Warn("duplicate ratio above configured threshold",
			logging.Float64("duplicate_percent", analysis.DuplicatePercent),
			logging.Int("threshold_percent", limit),
		)
	}

	g.logger.Info("analysis complete",
		logging.Int("total_files", analysis.TotalFiles),
		logging.Int("duplicate_groups", len(analysis.Groups)),
		logging.Int("duplicate_files", analysis.DuplicateFiles),
		logging.Int64("space_savings_bytes", analysis.SpaceSavingsBytes),
	)
	return analysis, nil
}

// sortMembers applies the ranking order. Path is the final key, so two
// members never compare equal and the order is fully deterministic.
func sortMembers(members []media.File) {
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SizeBytes != b.SizeBytes {
			return a.SizeBytes > b.SizeBytes
		}
		return a.Path < b.Path
	})
}

func recordToFile(rec catalog.FileRecord) media.File {
	return media.File{
		Path:        rec.Path,
		ContentHash: rec.ContentHash,
		SizeBytes:   rec.SizeBytes,
		ModTime:     rec.ModTime,
		Extension:   rec.Extension,
	}
}
