package decision

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"curator/internal/catalog"
	"curator/internal/dupes"
	"curator/internal/faults"
	"curator/internal/logging"
	"curator/internal/media"
)

const testHash = "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"

func newTestRecorder(t *testing.T) (*Recorder, *catalog.Store) {
	t.Helper()
	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRecorder(store, logging.NewNop()), store
}

func testGroup(paths ...string) dupes.Group {
	g := dupes.Group{Hash: testHash}
	for i, p := range paths {
		g.Members = append(g.Members, media.File{
			Path:        p,
			ContentHash: testHash,
			SizeBytes:   100,
			Score:       90 - i,
		})
	}
	return g
}

func TestRecordAutoKeepsTopMember(t *testing.T) {
	r, store := newTestRecorder(t)
	group := testGroup("/a/best.cr2", "/a/mid.jpg", "/a/worst.jpg")

	if err := r.RecordAuto(context.Background(), group); err != nil {
		t.Fatalf("RecordAuto: %v", err)
	}
	d, err := store.GetDecision(context.Background(), testHash)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil {
		t.Fatal("decision not recorded")
	}
	if d.Mode != catalog.DecisionAuto {
		t.Fatalf("wrong mode %s", d.Mode)
	}
	if len(d.KeepPaths) != 1 || d.KeepPaths[0] != "/a/best.cr2" {
		t.Fatalf("keep paths wrong: %v", d.KeepPaths)
	}
	if len(d.RemovePaths) != 2 {
		t.Fatalf("remove paths wrong: %v", d.RemovePaths)
	}
	if d.State != catalog.StatePending {
		t.Fatalf("new decision must be pending, got %s", d.State)
	}
}

func TestRecordManualMultiKeep(t *testing.T) {
	r, store := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg", "/a/three.jpg")

	err := r.RecordManual(context.Background(), group,
		[]string{"/a/one.jpg", "/a/three.jpg"}, []string{"/a/two.jpg"})
	if err != nil {
		t.Fatalf("RecordManual: %v", err)
	}
	d, err := store.GetDecision(context.Background(), testHash)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.KeepPaths) != 2 || len(d.RemovePaths) != 1 {
		t.Fatalf("partition wrong: keep=%v remove=%v", d.KeepPaths, d.RemovePaths)
	}
}

func TestRecordManualRejectsBadPartitions(t *testing.T) {
	r, _ := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg")

	cases := []struct {
		name   string
		keep   []string
		remove []string
	}{
		{"empty keep", nil, []string{"/a/one.jpg", "/a/two.jpg"}},
		{"overlap", []string{"/a/one.jpg"}, []string{"/a/one.jpg", "/a/two.jpg"}},
		{"incomplete", []string{"/a/one.jpg"}, nil},
		{"non-member", []string{"/a/one.jpg", "/b/other.jpg"}, []string{"/a/two.jpg"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.RecordManual(context.Background(), group, tc.keep, tc.remove)
			if !errors.Is(err, faults.ErrValidation) {
				t.Fatalf("expected validation fault, got %v", err)
			}
		})
	}
}

func TestRecordOverwritesUntilConsumed(t *testing.T) {
	r, store := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg")

	if err := r.RecordAuto(context.Background(), group); err != nil {
		t.Fatal(err)
	}
	err := r.RecordManual(context.Background(), group,
		[]string{"/a/two.jpg"}, []string{"/a/one.jpg"})
	if err != nil {
		t.Fatalf("overwrite rejected: %v", err)
	}
	d, err := store.GetDecision(context.Background(), testHash)
	if err != nil {
		t.Fatal(err)
	}
	if d.Mode != catalog.DecisionManual || d.KeepPaths[0] != "/a/two.jpg" {
		t.Fatalf("overwrite not applied: %+v", d)
	}
}

func TestUnresolvedEnumeration(t *testing.T) {
	r, _ := newTestRecorder(t)
	resolved := testGroup("/a/one.jpg", "/a/two.jpg")
	open := dupes.Group{
		Hash: strings.Repeat("e", 64),
		Members: []media.File{
			{Path: "/b/one.jpg", Score: 50},
			{Path: "/b/two.jpg", Score: 40},
		},
	}
	analysis := &dupes.Analysis{Groups: []dupes.Group{resolved, open}}

	if err := r.RecordAuto(context.Background(), resolved); err != nil {
		t.Fatal(err)
	}
	unresolved, err := r.Unresolved(context.Background(), analysis)
	if err != nil {
		t.Fatal(err)
	}
	if len(unresolved) != 1 || unresolved[0].Hash != open.Hash {
		t.Fatalf("unresolved wrong: %+v", unresolved)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	r, _ := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg")
	if err := r.RecordManual(context.Background(), group,
		[]string{"/a/two.jpg"}, []string{"/a/one.jpg"}); err != nil {
		t.Fatal(err)
	}

	var exported strings.Builder
	if err := r.Export(context.Background(), &exported); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(exported.String(), "KEEP|/a/two.jpg") {
		t.Fatalf("export missing keep line:\n%s", exported.String())
	}

	r2, store2 := newTestRecorder(t)
	analysis := &dupes.Analysis{Groups: []dupes.Group{group}}
	n, err := r2.Import(context.Background(), analysis, strings.NewReader(exported.String()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported decision, got %d", n)
	}
	d, err := store2.GetDecision(context.Background(), testHash)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.KeepPaths[0] != "/a/two.jpg" {
		t.Fatalf("imported decision wrong: %+v", d)
	}
}

func TestImportAcceptsHeaderlessFile(t *testing.T) {
	r, store := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg")
	analysis := &dupes.Analysis{Groups: []dupes.Group{group}}

	file := "# hand-edited\nKEEP|/a/two.jpg\nREMOVE|/a/one.jpg\n"
	n, err := r.Import(context.Background(), analysis, strings.NewReader(file))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported decision, got %d", n)
	}
	d, err := store.GetDecision(context.Background(), testHash)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.KeepPaths[0] != "/a/two.jpg" || d.RemovePaths[0] != "/a/one.jpg" {
		t.Fatalf("imported decision wrong: %+v", d)
	}
}

func TestImportRejectsMalformedAndUnknown(t *testing.T) {
	r, store := newTestRecorder(t)
	group := testGroup("/a/one.jpg", "/a/two.jpg")
	analysis := &dupes.Analysis{Groups: []dupes.Group{group}}

	_, err := r.Import(context.Background(), analysis, strings.NewReader("KEEP|/nowhere.jpg\n"))
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation fault for path in no group, got %v", err)
	}

	_, err = r.Import(context.Background(), analysis, strings.NewReader("KEEP|/a/one.jpg\n"))
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation fault for incomplete headerless partition, got %v", err)
	}

	badGroup := "group " + strings.Repeat("f", 64) + "\nKEEP|/x.jpg\n"
	_, err = r.Import(context.Background(), analysis, strings.NewReader(badGroup))
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation fault for unknown group, got %v", err)
	}

	badPartition := "group " + testHash + "\nKEEP|/a/one.jpg\n"
	_, err = r.Import(context.Background(), analysis, strings.NewReader(badPartition))
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation fault for incomplete partition, got %v", err)
	}
	if d, _ := store.GetDecision(context.Background(), testHash); d != nil {
		t.Fatal("failed import must not record decisions")
	}
}

func TestReviewSessionCommands(t *testing.T) {
	r, store := newTestRecorder(t)
	groupA := testGroup("/a/one.jpg", "/a/two.jpg")
	groupB := dupes.Group{
		Hash: strings.Repeat("e", 64),
		Members: []media.File{
			{Path: "/b/one.jpg", Score: 60},
			{Path: "/b/two.jpg", Score: 50},
		},
	}

	input := strings.NewReader("view\nkeep 9\nkeep 2\nauto\n")
	var out strings.Builder
	session := NewSession(r, input, &out)
	n, err := session.Run(context.Background(), []dupes.Group{groupA, groupB})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recorded decisions, got %d", n)
	}
	if !strings.Contains(out.String(), "invalid member number") {
		t.Fatal("expected rejection of out-of-range rank")
	}

	dA, err := store.GetDecision(context.Background(), groupA.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if dA.KeepPaths[0] != "/a/two.jpg" || dA.Mode != catalog.DecisionManual {
		t.Fatalf("keep 2 not applied: %+v", dA)
	}
	dB, err := store.GetDecision(context.Background(), groupB.Hash)
	if err != nil {
		t.Fatal(err)
	}
	if dB.Mode != catalog.DecisionAuto || dB.KeepPaths[0] != "/b/one.jpg" {
		t.Fatalf("auto not applied: %+v", dB)
	}
}

func TestReviewSessionQuitAndSkip(t *testing.T) {
	r, store := newTestRecorder(t)
	groupA := testGroup("/a/one.jpg", "/a/two.jpg")

	input := strings.NewReader("skip\n")
	var out strings.Builder
	n, err := NewSession(r, input, &out).Run(context.Background(), []dupes.Group{groupA})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("skip must record nothing, got %d", n)
	}
	if d, _ := store.GetDecision(context.Background(), groupA.Hash); d != nil {
		t.Fatal("skipped group must stay unresolved")
	}
}
