package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const decisionColumns = "group_hash, mode, keep_paths, remove_paths, state, error_message, created_at, updated_at"

// UpsertDecision records a keep/remove decision for a group. Recording
// twice replaces the prior decision (idempotent overwrite) and resets the
// group state to pending; the executor marks consumed decisions through
// state transitions instead.
func (s *Store) UpsertDecision(ctx context.Context, d Decision) error {
	keep, err := json.Marshal(d.KeepPaths)
	if err != nil {
		return fmt.Errorf("marshal keep paths: %w", err)
	}
	remove, err := json.Marshal(d.RemovePaths)
	if err != nil {
		return fmt.Errorf("marshal remove paths: %w", err)
	}
	state := d.State
	if state == "" {
		state = StatePending
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO decisions (group_hash, mode, keep_paths, remove_paths, state, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(group_hash) DO UPDATE SET
            mode = excluded.mode,
            keep_paths = excluded.keep_paths,
            remove_paths = excluded.remove_paths,
            state = excluded.state,
            error_message = excluded.error_message,
            updated_at = excluded.updated_at`,
		d.GroupHash,
		string(d.Mode),
		string(keep),
		string(remove),
		string(state),
		d.ErrorMessage,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert decision %s: %w", d.GroupHash, err)
	}
	return nil
}

// GetDecision fetches the decision for a group hash. Returns nil when the
// group is unresolved.
func (s *Store) GetDecision(ctx context.Context, groupHash string) (*Decision, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+decisionColumns+` FROM decisions WHERE group_hash = ?`,
		groupHash,
	)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return d, nil
}

// AllDecisions returns every recorded decision ordered by group hash.
func (s *Store) AllDecisions(ctx context.Context) ([]Decision, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+decisionColumns+` FROM decisions ORDER BY group_hash`,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		decisions = append(decisions, *d)
	}
	return decisions, rows.Err()
}

// SetGroupState transitions a group's consolidation state, recording an
// error message for failed states.
func (s *Store) SetGroupState(ctx context.Context, groupHash string, state GroupState, errorMessage string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE decisions SET state = ?, error_message = ?, updated_at = ? WHERE group_hash = ?`,
		string(state),
		errorMessage,
		now,
		groupHash,
	)
	if err != nil {
		return fmt.Errorf("set group state %s: %w", groupHash, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set group state %s: no such decision", groupHash)
	}
	return nil
}

// ResetRetryableStates moves copy_failed, partial, and interrupted
// in-flight groups back to pending so the next run retries them from
// scratch.
func (s *Store) ResetRetryableStates(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE decisions SET state = ?, error_message = '', updated_at = ?
         WHERE state IN (?, ?, ?, ?)`,
		string(StatePending),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(StateCopyFailed),
		string(StatePartial),
		string(StateCopying),
		string(StateRemoving),
	)
	if err != nil {
		return 0, fmt.Errorf("reset retryable states: %w", err)
	}
	return res.RowsAffected()
}

// DecisionStateCounts aggregates decisions per state for status output.
func (s *Store) DecisionStateCounts(ctx context.Context) (map[GroupState]int64, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT state, COUNT(1) FROM decisions GROUP BY state`,
	)
	if err != nil {
		return nil, fmt.Errorf("count decision states: %w", err)
	}
	defer rows.Close()

	counts := make(map[GroupState]int64)
	for rows.Next() {
		var (
			state string
			count int64
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		parsed, ok := ParseGroupState(state)
		if !ok {
			continue
		}
		counts[parsed] = count
	}
	return counts, rows.Err()
}

func scanDecision(row rowScanner) (*Decision, error) {
	var (
		d         Decision
		mode      string
		keep      string
		remove    string
		state     string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&d.GroupHash,
		&mode,
		&keep,
		&remove,
		&state,
		&d.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	d.Mode = DecisionMode(mode)
	if err := json.Unmarshal([]byte(keep), &d.KeepPaths); err != nil {
		return nil, fmt.Errorf("unmarshal keep paths: %w", err)
	}
	if err := json.Unmarshal([]byte(remove), &d.RemovePaths); err != nil {
		return nil, fmt.Errorf("unmarshal remove paths: %w", err)
	}
	parsed, ok := ParseGroupState(state)
	if !ok {
		return nil, fmt.Errorf("unknown group state %q", state)
	}
	d.State = parsed
	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &d, nil
}
