package trawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/trawlfs/trawl/internal/workq"
)

// worker drains the queue until it closes. Each loop iteration fully
// processes one entry: stat, visit, expand, and only then Done — the
// decrement must come after the children are pushed or quiescence could
// be detected while discovery is still in flight.
type worker struct {
	id      int
	queue   *workq.Queue[Entry]
	fs      FileSystem
	visitor Visitor
	filter  FilterOptions
	acc     *accumulator
	logger  *zap.Logger
}

func (w *worker) run(ctx context.Context) {
	for {
		entry, ok := w.queue.Pop()
		if !ok {
			w.logger.Debug("worker exiting", zap.Int("worker", w.id))
			return
		}
		if ctx.Err() != nil {
			// Cancellation noticed at the dequeue boundary. Shut the
			// queue so the remaining workers unblock, and leave without
			// draining further work.
			w.queue.Shutdown()
			return
		}
		w.process(ctx, entry)
		w.queue.Done()
	}
}

// process handles one entry. Every exit path leaves the entry fully
// processed from the queue's perspective; the caller performs the
// single Done.
func (w *worker) process(ctx context.Context, entry Entry) {
	info, err := w.fs.Stat(entry.Path)
	if err != nil {
		w.logger.Debug("stat failed", zap.String("path", entry.Path), zap.Error(err))
		w.acc.recordError(entry.Path, ErrKindStat, err)
		return
	}

	if info.IsDir() {
		w.processDir(ctx, entry, info)
		return
	}

	if !filePassesFilter(info, w.filter) {
		w.acc.addFiltered()
		return
	}

	w.visit(ctx, entry, info)
	if info.Mode().IsRegular() {
		w.acc.addFile(entry.Root, info.Size())
	} else {
		w.acc.addOther(entry.Root)
	}
}

func (w *worker) processDir(ctx context.Context, entry Entry, info os.FileInfo) {
	// Seeded roots are exempt: naming a root on the command line beats
	// an exclude pattern.
	if entry.Depth > 0 && excludesDir(filepath.Base(entry.Path), w.filter.ExcludeDir) {
		w.logger.Debug("directory excluded", zap.String("path", entry.Path))
		return
	}

	w.visit(ctx, entry, info)
	w.acc.addDir(entry.Root)

	descend := true
	if enterer, ok := w.visitor.(DirEnterer); ok {
		descend = enterer.EnterDir(ctx, entry, info)
	}
	if descend {
		w.expand(entry)
	}
	if exiter, ok := w.visitor.(DirExiter); ok {
		exiter.ExitDir(ctx, entry, info)
	}
}

// expand lists a directory's children and pushes them. A listing
// failure is recorded and the directory is treated as childless.
func (w *worker) expand(entry Entry) {
	children, err := w.fs.List(entry.Path)
	if err != nil {
		w.logger.Debug("list failed", zap.String("path", entry.Path), zap.Error(err))
		w.acc.recordError(entry.Path, ErrKindList, err)
		return
	}
	for _, child := range children {
		w.queue.Push(Entry{
			Path:  filepath.Join(entry.Path, child.Name),
			Depth: entry.Depth + 1,
			Root:  entry.Root,
			Hint:  child.Hint,
		})
	}
}

// visit dispatches the callback, converting an error or panic into a
// recorded error so that one bad entry cannot end the run.
func (w *worker) visit(ctx context.Context, entry Entry, info os.FileInfo) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("visitor panicked",
				zap.String("path", entry.Path),
				zap.Any("panic", r),
			)
			w.acc.recordError(entry.Path, ErrKindVisitor, fmt.Errorf("visitor panic: %v", r))
		}
	}()
	if err := w.visitor.Visit(ctx, entry, info); err != nil {
		w.acc.recordError(entry.Path, ErrKindVisitor, err)
	}
}
