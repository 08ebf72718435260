package decision

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"curator/internal/dupes"
)

// Session drives an interactive review of unresolved groups. Input and
// output are plain streams so the flow is testable without a terminal.
type Session struct {
	recorder *Recorder
	in       *bufio.Scanner
	out      io.Writer
}

// NewSession builds a review session over the given streams.
func NewSession(recorder *Recorder, in io.Reader, out io.Writer) *Session {
	return &Session{
		recorder: recorder,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run walks each group and prompts for a command:
//
//	keep N[,M...]  keep the listed members, remove the rest
//	auto           accept the ranking (keep the top member)
//	view           print the group again
//	skip           leave the group unresolved
//	quit           stop reviewing
//
// Returns the number of decisions recorded.
func (s *Session) Run(ctx context.Context, groups []dupes.Group) (int, error) {
	recorded := 0
	for i, group := range groups {
		fmt.Fprintf(s.out, "\nGroup %d of %d\n", i+1, len(groups))
		s.printGroup(group)
	prompt:
		for {
			fmt.Fprintf(s.out, "[keep N | auto | view | skip | quit] > ")
			if !s.in.Scan() {
				return recorded, s.in.Err()
			}
			cmd := strings.TrimSpace(s.in.Text())
			switch {
			case cmd == "quit":
				return recorded, nil
			case cmd == "skip":
				break prompt
			case cmd == "view":
				s.printGroup(group)
			case cmd == "auto":
				if err := s.recorder.RecordAuto(ctx, group); err != nil {
					return recorded, err
				}
				recorded++
				break prompt
			case strings.HasPrefix(cmd, "keep "):
				keep, remove, err := partitionFromRanks(group, strings.TrimPrefix(cmd, "keep "))
				if err != nil {
					fmt.Fprintf(s.out, "%v\n", err)
					continue
				}
				if err := s.recorder.RecordManual(ctx, group, keep, remove); err != nil {
					return recorded, err
				}
				recorded++
				break prompt
			default:
				fmt.Fprintf(s.out, "unknown command %q\n", cmd)
			}
		}
	}
	return recorded, nil
}

func (s *Session) printGroup(group dupes.Group) {
	for rank, m := range group.Members {
		fmt.Fprintf(s.out, "  %d. score=%d/100  %s  %s\n",
			rank+1, m.Score, humanize.IBytes(uint64(m.SizeBytes)), m.Path)
	}
}

// partitionFromRanks turns a comma-separated list of 1-based member
// ranks into keep/remove path sets.
func partitionFromRanks(group dupes.Group, ranks string) (keep, remove []string, err error) {
	chosen := make(map[int]bool)
	for _, field := range strings.Split(ranks, ",") {
		field = strings.TrimSpace(field)
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(group.Members) {
			return nil, nil, fmt.Errorf("invalid member number %q (1-%d)", field, len(group.Members))
		}
		chosen[n] = true
	}
	for rank, m := range group.Members {
		if chosen[rank+1] {
			keep = append(keep, m.Path)
		} else {
			remove = append(remove, m.Path)
		}
	}
	return keep, remove, nil
}
