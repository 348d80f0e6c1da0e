package trawl

import (
	"context"
	"os"
	"sync/atomic"
)

// CountingVisitor is an example Visitor that tallies every node it is
// shown. Counters are updated atomically, so one instance can be shared
// by all workers without extra locking.
//
// When constructed with NewCountingVisitor, directories that live on a
// different device than every seeded root are not descended into, which
// keeps a walk from wandering across mount points. On platforms without
// device numbers the guard is inert.
type CountingVisitor struct {
	files  int64
	dirs   int64
	others int64
	bytes  int64

	rootDevices map[uint64]struct{}
}

// NewCountingVisitor records the device number of each root so the
// same-device guard can veto descent elsewhere. Roots that cannot be
// statted are skipped; they will surface as stat errors in the run
// result anyway.
func NewCountingVisitor(roots []string) *CountingVisitor {
	devices := make(map[uint64]struct{})
	for _, root := range roots {
		info, err := os.Lstat(root)
		if err != nil {
			continue
		}
		if dev, ok := deviceOf(info); ok {
			devices[dev] = struct{}{}
		}
	}
	return &CountingVisitor{rootDevices: devices}
}

// Visit counts the node by kind.
func (v *CountingVisitor) Visit(ctx context.Context, entry Entry, info os.FileInfo) error {
	switch {
	case info.IsDir():
		atomic.AddInt64(&v.dirs, 1)
	case info.Mode().IsRegular():
		atomic.AddInt64(&v.files, 1)
		atomic.AddInt64(&v.bytes, info.Size())
	default:
		atomic.AddInt64(&v.others, 1)
	}
	return nil
}

// EnterDir keeps the walk on the devices the roots live on.
func (v *CountingVisitor) EnterDir(ctx context.Context, entry Entry, info os.FileInfo) bool {
	if len(v.rootDevices) == 0 {
		return true
	}
	dev, ok := deviceOf(info)
	if !ok {
		return true
	}
	_, same := v.rootDevices[dev]
	return same
}

// Files returns the number of regular files visited.
func (v *CountingVisitor) Files() int64 { return atomic.LoadInt64(&v.files) }

// Dirs returns the number of directories visited.
func (v *CountingVisitor) Dirs() int64 { return atomic.LoadInt64(&v.dirs) }

// Others returns the number of non-file, non-directory nodes visited.
func (v *CountingVisitor) Others() int64 { return atomic.LoadInt64(&v.others) }

// Bytes returns the total size of the regular files visited.
func (v *CountingVisitor) Bytes() int64 { return atomic.LoadInt64(&v.bytes) }
