package trawl

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorKind classifies a recoverable traversal error.
type ErrorKind int

const (
	ErrKindStat    ErrorKind = iota // metadata retrieval failed
	ErrKindList                     // directory listing failed
	ErrKindVisitor                  // visitor returned an error or panicked
)

// String returns the kind's short name.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindStat:
		return "stat"
	case ErrKindList:
		return "list"
	case ErrKindVisitor:
		return "visitor"
	default:
		return "unknown"
	}
}

// WalkError records one recoverable failure encountered during a run.
// Walk errors never abort the traversal; they are collected into the
// run result.
type WalkError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e WalkError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Path, e.Err)
}

func (e WalkError) Unwrap() error { return e.Err }

// Outcome reports how a run ended.
type Outcome int

const (
	Completed Outcome = iota // every node under the roots was processed
	Cancelled                // the run was shut down before quiescence
)

// String returns the outcome's name.
func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// RootStats tallies visits attributable to one seeded root.
type RootStats struct {
	Path  string
	Files int64
	Dirs  int64
}

// Stats is a snapshot of traversal counters.
type Stats struct {
	FilesVisited  int64         // Regular files visited
	DirsVisited   int64         // Directories visited
	OthersVisited int64         // Symlinks, devices, fifos, sockets visited
	FilesFiltered int64         // Files skipped by the filter
	BytesSeen     int64         // Total size of visited files
	ErrorCount    int64         // Recoverable errors recorded
	ElapsedTime   time.Duration // Time elapsed so far
	AvgFileSize   int64         // Average visited file size in bytes
	SpeedMBPerSec float64       // Visited bytes per second in MB/s
}

// updateDerivedStats calculates derived statistics like averages and speeds.
func (s *Stats) updateDerivedStats() {
	if s.FilesVisited > 0 {
		s.AvgFileSize = s.BytesSeen / s.FilesVisited
	}

	elapsedSec := s.ElapsedTime.Seconds()
	if elapsedSec > 0 && s.BytesSeen > 0 {
		megabytes := float64(s.BytesSeen) / (1024.0 * 1024.0)
		s.SpeedMBPerSec = megabytes / elapsedSec
	} else {
		s.SpeedMBPerSec = 0
	}
}

// Result is the aggregate outcome of one traversal run.
type Result struct {
	Stats
	Outcome Outcome
	Roots   []RootStats // per-root tallies, indexed like the seeded roots
	Errors  []WalkError // every recoverable error, in recording order
}

// accumulator is the workers' shared scoreboard. Counter fields are
// updated atomically; the error slice is guarded by mu.
type accumulator struct {
	files    int64
	dirs     int64
	others   int64
	filtered int64
	bytes    int64
	errCount int64

	rootFiles []int64
	rootDirs  []int64

	mu     sync.Mutex
	errors []WalkError
}

func newAccumulator(roots int) *accumulator {
	return &accumulator{
		rootFiles: make([]int64, roots),
		rootDirs:  make([]int64, roots),
	}
}

func (a *accumulator) addFile(root int, size int64) {
	atomic.AddInt64(&a.files, 1)
	atomic.AddInt64(&a.bytes, size)
	atomic.AddInt64(&a.rootFiles[root], 1)
}

func (a *accumulator) addDir(root int) {
	atomic.AddInt64(&a.dirs, 1)
	atomic.AddInt64(&a.rootDirs[root], 1)
}

func (a *accumulator) addOther(root int) {
	atomic.AddInt64(&a.others, 1)
	atomic.AddInt64(&a.rootFiles[root], 1)
}

func (a *accumulator) addFiltered() {
	atomic.AddInt64(&a.filtered, 1)
}

func (a *accumulator) recordError(path string, kind ErrorKind, err error) {
	atomic.AddInt64(&a.errCount, 1)
	a.mu.Lock()
	a.errors = append(a.errors, WalkError{Path: path, Kind: kind, Err: err})
	a.mu.Unlock()
}

// snapshot returns a consistent-enough view of the counters for
// progress reporting. Individual fields are loaded atomically but the
// set as a whole is not a single atomic read.
func (a *accumulator) snapshot(elapsed time.Duration) Stats {
	s := Stats{
		FilesVisited:  atomic.LoadInt64(&a.files),
		DirsVisited:   atomic.LoadInt64(&a.dirs),
		OthersVisited: atomic.LoadInt64(&a.others),
		FilesFiltered: atomic.LoadInt64(&a.filtered),
		BytesSeen:     atomic.LoadInt64(&a.bytes),
		ErrorCount:    atomic.LoadInt64(&a.errCount),
		ElapsedTime:   elapsed,
	}
	s.updateDerivedStats()
	return s
}

// result assembles the final Result. Safe only after all workers have
// been joined.
func (a *accumulator) result(roots []string, outcome Outcome, elapsed time.Duration) *Result {
	res := &Result{
		Stats:   a.snapshot(elapsed),
		Outcome: outcome,
		Roots:   make([]RootStats, len(roots)),
		Errors:  a.errors,
	}
	for i, root := range roots {
		res.Roots[i] = RootStats{
			Path:  root,
			Files: a.rootFiles[i],
			Dirs:  a.rootDirs[i],
		}
	}
	return res
}
