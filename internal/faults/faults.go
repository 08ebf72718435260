// Package faults defines the error taxonomy shared across the pipeline.
// Per-file failures are tagged transient and counted without stopping a
// run; capacity, safety, and decision errors are fatal before any state
// is mutated.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks per-file I/O failures that are skipped and counted.
	ErrTransient = errors.New("transient failure")
	// ErrIntegrity marks a post-copy hash mismatch; the destination is
	// discarded and the group retried on the next run.
	ErrIntegrity = errors.New("integrity error")
	// ErrSafety marks a destructive path resolving outside the staging
	// root. Never downgraded to a skip.
	ErrSafety = errors.New("safety violation")
	// ErrCapacity marks insufficient free space; fatal for the whole run.
	ErrCapacity = errors.New("capacity error")
	// ErrValidation marks decision-partition violations and unresolved
	// groups; fatal for the executor run.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks missing files or records.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while
// tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error must stop the run rather than be
// recorded and skipped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCapacity) || errors.Is(err, ErrValidation) || errors.Is(err, ErrSafety)
}

// Class returns the report label for an error.
func Class(err error) string {
	switch {
	case errors.Is(err, ErrIntegrity):
		return "integrity"
	case errors.Is(err, ErrSafety):
		return "safety"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
