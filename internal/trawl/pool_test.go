package trawl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// The fixture tree used by most tests:
//
//	root/
//	  a.txt
//	  b.txt
//	  sub1/
//	    c.txt
//	    deep/
//	      d.txt
//	      e.txt
//	  sub2/          (empty)
const (
	treeFiles = 5
	treeDirs  = 4
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.txt"), "alpha")
	mustWrite(t, filepath.Join(root, "b.txt"), "bravo")
	mustMkdir(t, filepath.Join(root, "sub1"))
	mustWrite(t, filepath.Join(root, "sub1", "c.txt"), "charlie")
	mustMkdir(t, filepath.Join(root, "sub1", "deep"))
	mustWrite(t, filepath.Join(root, "sub1", "deep", "d.txt"), "delta")
	mustWrite(t, filepath.Join(root, "sub1", "deep", "e.txt"), "echo")
	mustMkdir(t, filepath.Join(root, "sub2"))
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", path, err)
	}
}

func testOptions(workers int) Options {
	return Options{
		Workers: workers,
		FS:      OSFileSystem{},
		Logger:  zap.NewNop(),
	}
}

// recorder counts visits and remembers every path it saw.
type recorder struct {
	mu    sync.Mutex
	paths map[string]int
	files int
	dirs  int
}

func newRecorder() *recorder {
	return &recorder{paths: make(map[string]int)}
}

func (r *recorder) Visit(ctx context.Context, entry Entry, info os.FileInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[entry.Path]++
	if info.IsDir() {
		r.dirs++
	} else {
		r.files++
	}
	return nil
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.files + r.dirs
}

func (r *recorder) pathSet() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.paths))
	for k, v := range r.paths {
		out[k] = v
	}
	return out
}

// faultFS wraps another FileSystem and injects errors for chosen paths.
type faultFS struct {
	fs       FileSystem
	statFail map[string]error
	listFail map[string]error
}

func (f faultFS) Stat(path string) (os.FileInfo, error) {
	if err, ok := f.statFail[path]; ok {
		return nil, err
	}
	return f.fs.Stat(path)
}

func (f faultFS) List(path string) ([]Child, error) {
	if err, ok := f.listFail[path]; ok {
		return nil, err
	}
	return f.fs.List(path)
}

// TestRunVisitsEveryNode checks completeness: every file and directory
// under the root is visited exactly once.
func TestRunVisitsEveryNode(t *testing.T) {
	root := buildTree(t)
	rec := newRecorder()

	result, err := Run(context.Background(), []string{root}, rec, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
	if result.FilesVisited != treeFiles {
		t.Errorf("FilesVisited = %d, want %d", result.FilesVisited, treeFiles)
	}
	if result.DirsVisited != treeDirs {
		t.Errorf("DirsVisited = %d, want %d", result.DirsVisited, treeDirs)
	}
	if result.ErrorCount != 0 {
		t.Errorf("ErrorCount = %d, want 0 (errors: %v)", result.ErrorCount, result.Errors)
	}
	for path, count := range rec.pathSet() {
		if count != 1 {
			t.Errorf("path %s visited %d times, want 1", path, count)
		}
	}
}

// TestRunWorkerCounts checks termination and identical totals for
// worker counts 1, 2 and 16.
func TestRunWorkerCounts(t *testing.T) {
	root := buildTree(t)
	for _, workers := range []int{1, 2, 16} {
		rec := newRecorder()
		result, err := Run(context.Background(), []string{root}, rec, testOptions(workers))
		if err != nil {
			t.Fatalf("Run with %d workers failed: %v", workers, err)
		}
		if got := rec.total(); got != treeFiles+treeDirs {
			t.Errorf("workers=%d: visited %d nodes, want %d", workers, got, treeFiles+treeDirs)
		}
		if result.Outcome != Completed {
			t.Errorf("workers=%d: Outcome = %v, want Completed", workers, result.Outcome)
		}
	}
}

// TestRepeatedRunsAreStable checks that concurrent execution never
// double-visits: repeated runs over a static tree report identical
// counts.
func TestRepeatedRunsAreStable(t *testing.T) {
	root := buildTree(t)
	for i := 0; i < 5; i++ {
		rec := newRecorder()
		if _, err := Run(context.Background(), []string{root}, rec, testOptions(8)); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if got := rec.total(); got != treeFiles+treeDirs {
			t.Errorf("run %d visited %d nodes, want %d", i, got, treeFiles+treeDirs)
		}
	}
}

// TestSequentialEquivalence checks that 1 worker and 16 workers visit
// the same set of paths.
func TestSequentialEquivalence(t *testing.T) {
	root := buildTree(t)

	seq := newRecorder()
	if _, err := Run(context.Background(), []string{root}, seq, testOptions(1)); err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}

	par := newRecorder()
	if _, err := Run(context.Background(), []string{root}, par, testOptions(16)); err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	seqPaths, parPaths := seq.pathSet(), par.pathSet()
	if len(seqPaths) != len(parPaths) {
		t.Fatalf("sequential visited %d paths, parallel %d", len(seqPaths), len(parPaths))
	}
	for path := range seqPaths {
		if _, ok := parPaths[path]; !ok {
			t.Errorf("path %s visited sequentially but not in parallel", path)
		}
	}
}

// TestZeroRoots checks the immediately-quiescent empty result.
func TestZeroRoots(t *testing.T) {
	rec := newRecorder()
	result, err := Run(context.Background(), nil, rec, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
	if rec.total() != 0 || result.FilesVisited != 0 || result.DirsVisited != 0 {
		t.Error("zero roots produced visits")
	}
}

// TestOptionValidation checks the startup error paths.
func TestOptionValidation(t *testing.T) {
	if _, err := Run(context.Background(), nil, newRecorder(), testOptions(0)); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("workers=0: err = %v, want ErrNoWorkers", err)
	}
	if _, err := Run(context.Background(), nil, nil, testOptions(1)); !errors.Is(err, ErrNilVisitor) {
		t.Errorf("nil visitor: err = %v, want ErrNilVisitor", err)
	}
}

// TestStatErrorIsolation injects a stat failure for one subdirectory
// and checks that its siblings are still fully visited.
func TestStatErrorIsolation(t *testing.T) {
	root := buildTree(t)
	deep := filepath.Join(root, "sub1", "deep")

	opts := testOptions(4)
	opts.FS = faultFS{
		fs:       OSFileSystem{},
		statFail: map[string]error{deep: os.ErrPermission},
	}

	rec := newRecorder()
	result, err := Run(context.Background(), []string{root}, rec, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// deep and its two files are gone; everything else remains.
	if result.FilesVisited != 3 {
		t.Errorf("FilesVisited = %d, want 3", result.FilesVisited)
	}
	if result.DirsVisited != 3 {
		t.Errorf("DirsVisited = %d, want 3", result.DirsVisited)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(result.Errors), result.Errors)
	}
	walkErr := result.Errors[0]
	if walkErr.Path != deep || walkErr.Kind != ErrKindStat {
		t.Errorf("error = %+v, want stat error for %s", walkErr, deep)
	}
	if !errors.Is(walkErr, os.ErrPermission) {
		t.Errorf("error does not unwrap to os.ErrPermission: %v", walkErr)
	}
	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
}

// TestListErrorIsolation injects a listing failure: the directory is
// visited, recorded as childless, and the run completes.
func TestListErrorIsolation(t *testing.T) {
	root := buildTree(t)
	sub1 := filepath.Join(root, "sub1")

	opts := testOptions(4)
	opts.FS = faultFS{
		fs:       OSFileSystem{},
		listFail: map[string]error{sub1: os.ErrPermission},
	}

	rec := newRecorder()
	result, err := Run(context.Background(), []string{root}, rec, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// sub1 itself is visited; its subtree is not discovered.
	if result.DirsVisited != 3 {
		t.Errorf("DirsVisited = %d, want 3", result.DirsVisited)
	}
	if result.FilesVisited != 2 {
		t.Errorf("FilesVisited = %d, want 2", result.FilesVisited)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != ErrKindList || result.Errors[0].Path != sub1 {
		t.Errorf("errors = %v, want one list error for %s", result.Errors, sub1)
	}
}

// TestVisitorErrorRecorded checks that a visitor error is isolated into
// the error log without stopping the run.
func TestVisitorErrorRecorded(t *testing.T) {
	root := buildTree(t)
	target := filepath.Join(root, "b.txt")
	bad := errors.New("bad entry")

	visitor := VisitorFunc(func(ctx context.Context, entry Entry, info os.FileInfo) error {
		if entry.Path == target {
			return bad
		}
		return nil
	})

	result, err := Run(context.Background(), []string{root}, visitor, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
	if result.FilesVisited != treeFiles {
		t.Errorf("FilesVisited = %d, want %d", result.FilesVisited, treeFiles)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Kind != ErrKindVisitor || !errors.Is(result.Errors[0], bad) {
		t.Errorf("error = %+v, want visitor error wrapping %v", result.Errors[0], bad)
	}
}

// TestVisitorPanicIsolated checks that a panicking visitor does not
// take down the run.
func TestVisitorPanicIsolated(t *testing.T) {
	root := buildTree(t)
	target := filepath.Join(root, "a.txt")

	visitor := VisitorFunc(func(ctx context.Context, entry Entry, info os.FileInfo) error {
		if entry.Path == target {
			panic("visitor blew up")
		}
		return nil
	})

	result, err := Run(context.Background(), []string{root}, visitor, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != ErrKindVisitor {
		t.Errorf("errors = %v, want one visitor error", result.Errors)
	}
}

// TestCancellation cancels the context from inside the first visit and
// checks that the run returns promptly with a Cancelled outcome.
func TestCancellation(t *testing.T) {
	root := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	visitor := VisitorFunc(func(ctx context.Context, entry Entry, info os.FileInfo) error {
		err := rec.Visit(ctx, entry, info)
		cancel()
		// Give the shutdown a moment to land before this entry's
		// children would be enqueued.
		time.Sleep(150 * time.Millisecond)
		return err
	})

	done := make(chan *Result, 1)
	go func() {
		result, err := Run(ctx, []string{root}, visitor, testOptions(2))
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
		done <- result
	}()

	select {
	case result := <-done:
		if result == nil {
			return
		}
		if result.Outcome != Cancelled {
			t.Errorf("Outcome = %v, want Cancelled", result.Outcome)
		}
		if got := rec.total(); got > treeFiles+treeDirs {
			t.Errorf("visited %d nodes, more than the tree holds", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

// TestPerRootStats seeds two roots and checks the per-root tallies.
func TestPerRootStats(t *testing.T) {
	rootA := buildTree(t)
	rootB := buildTree(t)

	rec := newRecorder()
	result, err := Run(context.Background(), []string{rootA, rootB}, rec, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Roots) != 2 {
		t.Fatalf("got %d root entries, want 2", len(result.Roots))
	}
	for i, rs := range result.Roots {
		if rs.Files != treeFiles || rs.Dirs != treeDirs {
			t.Errorf("root %d: files=%d dirs=%d, want %d/%d", i, rs.Files, rs.Dirs, treeFiles, treeDirs)
		}
	}
	if result.FilesVisited != 2*treeFiles || result.DirsVisited != 2*treeDirs {
		t.Errorf("totals = %d files / %d dirs, want %d/%d",
			result.FilesVisited, result.DirsVisited, 2*treeFiles, 2*treeDirs)
	}
}

// TestExcludeDir checks that an excluded directory is neither visited
// nor descended into.
func TestExcludeDir(t *testing.T) {
	root := buildTree(t)

	opts := testOptions(4)
	opts.Filter.ExcludeDir = []string{"sub1"}

	rec := newRecorder()
	result, err := Run(context.Background(), []string{root}, rec, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.DirsVisited != 2 { // root and sub2
		t.Errorf("DirsVisited = %d, want 2", result.DirsVisited)
	}
	if result.FilesVisited != 2 { // a.txt and b.txt
		t.Errorf("FilesVisited = %d, want 2", result.FilesVisited)
	}
	if _, saw := rec.pathSet()[filepath.Join(root, "sub1")]; saw {
		t.Error("excluded directory was visited")
	}
}

// TestFileFilter checks that non-matching files are skipped but counted
// as filtered.
func TestFileFilter(t *testing.T) {
	root := buildTree(t)
	mustWrite(t, filepath.Join(root, "noise.log"), "xxxx")

	opts := testOptions(4)
	opts.Filter.Pattern = "*.txt"

	result, err := Run(context.Background(), []string{root}, newRecorder(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.FilesVisited != treeFiles {
		t.Errorf("FilesVisited = %d, want %d", result.FilesVisited, treeFiles)
	}
	if result.FilesFiltered != 1 {
		t.Errorf("FilesFiltered = %d, want 1", result.FilesFiltered)
	}
}

// TestDirEnterVeto checks that a visitor's EnterDir can stop descent
// while the directory itself is still visited, and that ExitDir fires
// for every directory.
func TestDirEnterVeto(t *testing.T) {
	root := buildTree(t)
	sub1 := filepath.Join(root, "sub1")

	visitor := &vetoVisitor{veto: sub1}
	result, err := Run(context.Background(), []string{root}, visitor, testOptions(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.DirsVisited != 3 { // root, sub1, sub2 — deep is never discovered
		t.Errorf("DirsVisited = %d, want 3", result.DirsVisited)
	}
	if result.FilesVisited != 2 {
		t.Errorf("FilesVisited = %d, want 2", result.FilesVisited)
	}
	if got := visitor.exits.Load(); got != 3 {
		t.Errorf("ExitDir fired %d times, want 3", got)
	}
}

type vetoVisitor struct {
	veto  string
	exits atomic.Int64
}

func (v *vetoVisitor) Visit(ctx context.Context, entry Entry, info os.FileInfo) error {
	return nil
}

func (v *vetoVisitor) EnterDir(ctx context.Context, entry Entry, info os.FileInfo) bool {
	return entry.Path != v.veto
}

func (v *vetoVisitor) ExitDir(ctx context.Context, entry Entry, info os.FileInfo) {
	v.exits.Add(1)
}

// TestRootIsFile seeds a single file as a root.
func TestRootIsFile(t *testing.T) {
	root := buildTree(t)
	file := filepath.Join(root, "a.txt")

	result, err := Run(context.Background(), []string{file}, newRecorder(), testOptions(1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesVisited != 1 || result.DirsVisited != 0 {
		t.Errorf("visited %d files / %d dirs, want 1/0", result.FilesVisited, result.DirsVisited)
	}
}

// TestNonexistentRoot records a stat error and completes.
func TestNonexistentRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	result, err := Run(context.Background(), []string{missing}, newRecorder(), testOptions(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != Completed {
		t.Errorf("Outcome = %v, want Completed", result.Outcome)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != ErrKindStat {
		t.Errorf("errors = %v, want one stat error", result.Errors)
	}
}

// TestTypeHints checks that entries carry the hint from the parent
// listing.
func TestTypeHints(t *testing.T) {
	root := buildTree(t)

	var mu sync.Mutex
	hints := make(map[string]EntryType)
	visitor := VisitorFunc(func(ctx context.Context, entry Entry, info os.FileInfo) error {
		mu.Lock()
		hints[entry.Path] = entry.Hint
		mu.Unlock()
		return nil
	})

	if _, err := Run(context.Background(), []string{root}, visitor, testOptions(4)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if hints[root] != TypeUnknown {
		t.Errorf("root hint = %v, want unknown", hints[root])
	}
	if hints[filepath.Join(root, "a.txt")] != TypeFile {
		t.Errorf("a.txt hint = %v, want file", hints[filepath.Join(root, "a.txt")])
	}
	if hints[filepath.Join(root, "sub1")] != TypeDir {
		t.Errorf("sub1 hint = %v, want dir", hints[filepath.Join(root, "sub1")])
	}
}
