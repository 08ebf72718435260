package decision

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"curator/internal/dupes"
	"curator/internal/faults"
)

// Decision files are line-oriented `KEEP|<path>` and `REMOVE|<path>`
// records. Member paths are unique across groups, so each line resolves
// to its group through the current analysis and no other structure is
// required. An optional `group <hash>` header pins the following lines
// to one group explicitly; Export emits that form for readability.
// Blank lines and `#` comments are ignored.

// Export writes every recorded decision to w in the decision file
// format, in stable hash order.
func (r *Recorder) Export(ctx context.Context, w io.Writer) error {
	decisions, err := r.store.AllDecisions(ctx)
	if err != nil {
		return err
	}
	for _, d := range decisions {
		if _, err := fmt.Fprintf(w, "group %s\n", d.GroupHash); err != nil {
			return err
		}
		for _, p := range d.KeepPaths {
			fmt.Fprintf(w, "KEEP|%s\n", p)
		}
		for _, p := range d.RemovePaths {
			fmt.Fprintf(w, "REMOVE|%s\n", p)
		}
		fmt.Fprintln(w)
	}
	return nil
}

type fileGroup struct {
	hash   string
	keep   []string
	remove []string
}

// Import parses a decision file and records each group as a manual
// decision, validated against the current analysis. A path that belongs
// to no group, an explicit header for a group the analysis does not
// contain, and any malformed line are all errors; nothing is recorded
// unless the whole file parses and validates.
func (r *Recorder) Import(ctx context.Context, analysis *dupes.Analysis, reader io.Reader) (int, error) {
	byHash := make(map[string]dupes.Group, len(analysis.Groups))
	groupOf := make(map[string]string)
	for _, g := range analysis.Groups {
		byHash[g.Hash] = g
		for _, m := range g.Members {
			groupOf[m.Path] = g.Hash
		}
	}

	groups, err := parseDecisionFile(reader, groupOf)
	if err != nil {
		return 0, err
	}

	// Validate everything before the first write.
	for _, fg := range groups {
		group, ok := byHash[fg.hash]
		if !ok {
			return 0, faults.Wrap(faults.ErrValidation, "decision", "import",
				fmt.Sprintf("unknown group %s", fg.hash), nil)
		}
		if err := validatePartition(group, fg.keep, fg.remove); err != nil {
			return 0, err
		}
	}
	for _, fg := range groups {
		if err := r.RecordManual(ctx, byHash[fg.hash], fg.keep, fg.remove); err != nil {
			return 0, err
		}
	}
	return len(groups), nil
}

// parseDecisionFile collects KEEP/REMOVE lines per group. Lines under a
// `group` header belong to that group; lines outside any header are
// resolved to their group by path via groupOf.
func parseDecisionFile(reader io.Reader, groupOf map[string]string) ([]*fileGroup, error) {
	var groups []*fileGroup
	index := make(map[string]*fileGroup)
	groupFor := func(hash string) *fileGroup {
		if fg, ok := index[hash]; ok {
			return fg
		}
		fg := &fileGroup{hash: hash}
		index[hash] = fg
		groups = append(groups, fg)
		return fg
	}

	var current *fileGroup
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if hash, ok := strings.CutPrefix(line, "group "); ok {
			current = groupFor(strings.TrimSpace(hash))
			continue
		}
		verb, path, ok := strings.Cut(line, "|")
		if !ok {
			return nil, faults.Wrap(faults.ErrValidation, "decision", "parse",
				fmt.Sprintf("line %d: malformed decision line %q", lineNo, line), nil)
		}
		target := current
		if target == nil {
			hash, known := groupOf[path]
			if !known {
				return nil, faults.Wrap(faults.ErrValidation, "decision", "parse",
					fmt.Sprintf("line %d: %s belongs to no duplicate group", lineNo, path), nil)
			}
			target = groupFor(hash)
		}
		switch verb {
		case "KEEP":
			target.keep = append(target.keep, path)
		case "REMOVE":
			target.remove = append(target.remove, path)
		default:
			return nil, faults.Wrap(faults.ErrValidation, "decision", "parse",
				fmt.Sprintf("line %d: unknown verb %q", lineNo, verb), nil)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrTransient, "decision", "parse", "read decision file", err)
	}
	return groups, nil
}
