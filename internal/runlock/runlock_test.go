package runlock

import (
	"errors"
	"testing"

	"curator/internal/faults"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := t.TempDir()

	first := New(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.Release()

	second := New(dir)
	err := second.Acquire()
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected contention error, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	second.Release()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Release(); err != nil {
		t.Fatalf("release without acquire must be safe: %v", err)
	}
}
