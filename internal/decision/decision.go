// Package decision records which members of each duplicate group are
// kept and which are removed. Decisions persist in the catalog and may
// be overwritten until the executor consumes them.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"curator/internal/catalog"
	"curator/internal/dupes"
	"curator/internal/faults"
	"curator/internal/logging"
)

// Recorder writes and validates keep/remove decisions.
type Recorder struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewRecorder builds a recorder over the catalog store.
func NewRecorder(store *catalog.Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logging.NewComponentLogger(logger, "decision"),
	}
}

// RecordAuto persists the group's ranking verbatim: keeper kept, the
// rest removed. Overwrites any earlier decision for the group.
func (r *Recorder) RecordAuto(ctx context.Context, group dupes.Group) error {
	remove := make([]string, 0, len(group.Removable()))
	for _, m := range group.Removable() {
		remove = append(remove, m.Path)
	}
	return r.persist(ctx, catalog.Decision{
		GroupHash:   group.Hash,
		Mode:        catalog.DecisionAuto,
		KeepPaths:   []string{group.Keeper().Path},
		RemovePaths: remove,
	})
}

// RecordManual persists an operator-chosen partition of the group. The
// keep and remove sets must be disjoint, cover every member exactly, and
// keep must be non-empty. Any violation is rejected without a write.
func (r *Recorder) RecordManual(ctx context.Context, group dupes.Group, keep, remove []string) error {
	if err := validatePartition(group, keep, remove); err != nil {
		return err
	}
	return r.persist(ctx, catalog.Decision{
		GroupHash:   group.Hash,
		Mode:        catalog.DecisionManual,
		KeepPaths:   keep,
		RemovePaths: remove,
	})
}

func (r *Recorder) persist(ctx context.Context, d catalog.Decision) error {
	d.State = catalog.StatePending
	sort.Strings(d.KeepPaths)
	sort.Strings(d.RemovePaths)
	if err := r.store.UpsertDecision(ctx, d); err != nil {
		return err
	}
	r.logger.Info("decision recorded",
		logging.String(logging.FieldGroupHash, d.GroupHash),
		logging.String("mode", string(d.Mode)),
		logging.Int("keep", len(d.KeepPaths)),
		logging.Int("remove", len(d.RemovePaths)),
	)
	return nil
}

// Unresolved returns the groups from the analysis that have no recorded
// decision yet, in the analysis order.
func (r *Recorder) Unresolved(ctx context.Context, analysis *dupes.Analysis) ([]dupes.Group, error) {
	var out []dupes.Group
	for _, group := range analysis.Groups {
		d, err := r.store.GetDecision(ctx, group.Hash)
		if err != nil {
			return nil, err
		}
		if d == nil {
			out = append(out, group)
		}
	}
	return out, nil
}

// validatePartition checks that keep and remove form an exact partition
// of the group members with at least one kept file.
func validatePartition(group dupes.Group, keep, remove []string) error {
	if len(keep) == 0 {
		return faults.Wrap(faults.ErrValidation, "decision", "validate",
			fmt.Sprintf("group %s: keep set must not be empty", group.Hash), nil)
	}
	members := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		members[m.Path] = true
	}
	seen := make(map[string]string, len(keep)+len(remove))
	for _, p := range keep {
		if !members[p] {
			return faults.Wrap(faults.ErrValidation, "decision", "validate",
				fmt.Sprintf("group %s: %s is not a member", group.Hash, p), nil)
		}
		seen[p] = "keep"
	}
	for _, p := range remove {
		if !members[p] {
			return faults.Wrap(faults.ErrValidation, "decision", "validate",
				fmt.Sprintf("group %s: %s is not a member", group.Hash, p), nil)
		}
		if seen[p] == "keep" {
			return faults.Wrap(faults.ErrValidation, "decision", "validate",
				fmt.Sprintf("group %s: %s appears in both keep and remove", group.Hash, p), nil)
		}
		seen[p] = "remove"
	}
	if len(seen) != len(group.Members) {
		return faults.Wrap(faults.ErrValidation, "decision", "validate",
			fmt.Sprintf("group %s: decision covers %d of %d members", group.Hash, len(seen), len(group.Members)), nil)
	}
	return nil
}
