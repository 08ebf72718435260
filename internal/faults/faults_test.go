package faults

import (
	"errors"
	"io/fs"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := fs.ErrPermission
	err := Wrap(ErrTransient, "scanner", "hash file", "unreadable", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := Wrap(nil, "scanner", "stat", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{Wrap(ErrCapacity, "safety", "preflight", "need 10GiB", nil), true},
		{Wrap(ErrSafety, "executor", "remove", "escapes staging", nil), true},
		{Wrap(ErrValidation, "executor", "decision", "unresolved group", nil), true},
		{Wrap(ErrTransient, "scanner", "read", "", nil), false},
		{Wrap(ErrIntegrity, "executor", "verify", "hash mismatch", nil), false},
	}
	for _, tc := range cases {
		if got := IsFatal(tc.err); got != tc.fatal {
			t.Errorf("IsFatal(%v) = %v, want %v", tc.err, got, tc.fatal)
		}
	}
}

func TestClassLabels(t *testing.T) {
	if Class(Wrap(ErrIntegrity, "", "", "", nil)) != "integrity" {
		t.Fatal("integrity label")
	}
	if Class(errors.New("plain")) != "transient" {
		t.Fatal("default label")
	}
}
