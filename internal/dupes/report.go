package dupes

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var englishPrinter = message.NewPrinter(language.English)

// WriteGroupReport renders every duplicate group with its ranking. The
// keeper is marked KEEP, everything else REMOVE.
func WriteGroupReport(w io.Writer, analysis *Analysis) error {
	for i, group := range analysis.Groups {
		if _, err := fmt.Fprintf(w, "Group %d  hash=%s  members=%d  savings=%s\n",
			i+1, shortHash(group.Hash), len(group.Members),
			humanize.IBytes(uint64(group.SpaceSavingsBytes))); err != nil {
			return err
		}
		for rank, m := range group.Members {
			marker := "REMOVE"
			if rank == 0 {
				marker = "KEEP  "
			}
			if _, err := fmt.Fprintf(w, "  %2d. %s  score=%3d/100  size=%-10s  format=%-13s  folder=%-10s  %s\n",
				rank+1, marker, m.Score,
				humanize.IBytes(uint64(m.SizeBytes)),
				string(m.Attributes.Format),
				string(m.FolderClass),
				m.Path); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary renders the aggregate view: counts, savings, and the
// extension and folder distributions among removable duplicates.
func WriteSummary(w io.Writer, analysis *Analysis) error {
	p := englishPrinter
	if _, err := p.Fprintf(w, "Files scanned:      %d\n", analysis.TotalFiles); err != nil {
		return err
	}
	p.Fprintf(w, "Unique files:       %d\n", len(analysis.Unique))
	p.Fprintf(w, "Duplicate groups:   %d\n", len(analysis.Groups))
	p.Fprintf(w, "Removable files:    %d (%.1f%%)\n", analysis.DuplicateFiles, analysis.DuplicatePercent)
	p.Fprintf(w, "Potential savings:  %s\n", humanize.IBytes(uint64(analysis.SpaceSavingsBytes)))
	if analysis.PercentExceeded {
		p.Fprintf(w, "WARNING: duplicate ratio exceeds the configured threshold; review before consolidating\n")
	}

	extCounts := map[string]int{}
	folderCounts := map[string]int{}
	for _, group := range analysis.Groups {
		for _, m := range group.Removable() {
			extCounts[m.Extension]++
			folderCounts[filepath.Dir(m.Path)]++
		}
	}
	if len(extCounts) > 0 {
		fmt.Fprintf(w, "\nDuplicates by extension:\n")
		for _, kv := range sortedCounts(extCounts, 0) {
			p.Fprintf(w, "  .%-6s %d\n", kv.key, kv.count)
		}
	}
	if len(folderCounts) > 0 {
		fmt.Fprintf(w, "\nTop folders with duplicates:\n")
		for _, kv := range sortedCounts(folderCounts, 10) {
			p.Fprintf(w, "  %5d  %s\n", kv.count, kv.key)
		}
	}
	return nil
}

type keyCount struct {
	key   string
	count int
}

func sortedCounts(m map[string]int, limit int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// ReportString renders both report sections into one string.
func ReportString(analysis *Analysis) string {
	var b strings.Builder
	_ = WriteSummary(&b, analysis)
	b.WriteString("\n")
	_ = WriteGroupReport(&b, analysis)
	return b.String()
}
