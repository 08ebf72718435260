package catalog

import (
	"strings"
	"time"
)

// GroupState represents the consolidation lifecycle of a duplicate group
// (or of a unique file, which runs the same machine without a removal
// phase).
type GroupState string

const (
	StatePending    GroupState = "pending"
	StateCopying    GroupState = "copying"
	StateCopied     GroupState = "copied"
	StateCopyFailed GroupState = "copy_failed"
	StateRemoving   GroupState = "removing"
	StateCompleted  GroupState = "completed"
	StatePartial    GroupState = "partial"
)

var allStates = []GroupState{
	StatePending,
	StateCopying,
	StateCopied,
	StateCopyFailed,
	StateRemoving,
	StateCompleted,
	StatePartial,
}

var stateSet = func() map[GroupState]struct{} {
	set := make(map[GroupState]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// retryableStates re-enter pending on the next executor run.
var retryableStates = map[GroupState]struct{}{
	StateCopyFailed: {},
	StatePartial:    {},
	StateCopying:    {},
	StateRemoving:   {},
}

// ParseGroupState converts a string into a known GroupState.
func ParseGroupState(value string) (GroupState, bool) {
	normalized := GroupState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the state ends a run for the group.
func (s GroupState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCopyFailed, StatePartial:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a subsequent run should reset the group to
// pending and retry from scratch.
func (s GroupState) IsRetryable() bool {
	_, ok := retryableStates[s]
	return ok
}

// DecisionMode records how a decision was produced.
type DecisionMode string

const (
	DecisionAuto   DecisionMode = "auto"
	DecisionManual DecisionMode = "manual"
)

// FileRecord is one manifest entry: a hashed file observed during a scan.
// Records are append-only; re-scans with unchanged size and mtime are
// skipped rather than duplicated.
type FileRecord struct {
	ID          int64
	Path        string
	ContentHash string
	SizeBytes   int64
	ModTime     time.Time
	Extension   string
	SourceRoot  string
	ScannedAt   time.Time
}

// Decision is the durable keep/remove resolution for one duplicate group,
// identified by its content hash. KeepPaths is never empty.
type Decision struct {
	GroupHash    string
	Mode         DecisionMode
	KeepPaths    []string
	RemovePaths  []string
	State        GroupState
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RunReport is the aggregate result of one consolidation run.
type RunReport struct {
	RunID        string
	DryRun       bool
	FilesKept    int64
	FilesRemoved int64
	FilesSkipped int64
	BytesSaved   int64
	StartedAt    time.Time
	FinishedAt   time.Time
}
