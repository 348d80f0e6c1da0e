package trawl

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trawlfs/trawl/internal/workq"
)

// DefaultWorkers is the worker count used when the caller does not
// specify one.
var DefaultWorkers = runtime.NumCPU()

// ErrNoWorkers is returned when the requested worker count is below one.
var ErrNoWorkers = errors.New("trawl: worker count must be at least one")

// ErrNilVisitor is returned when Run is called without a visitor.
var ErrNilVisitor = errors.New("trawl: visitor must not be nil")

// progressInterval is how often the progress callback fires.
const progressInterval = 500 * time.Millisecond

// ProgressFn is called periodically with traversal statistics.
// Implementations must be thread-safe as this may be called concurrently
// with visitor callbacks.
type ProgressFn func(stats Stats)

// Options configures a traversal run.
type Options struct {
	Workers  int           // number of worker goroutines; must be >= 1
	Filter   FilterOptions // optional include/exclude criteria
	FS       FileSystem    // metadata boundary; defaults to OSFileSystem
	Logger   *zap.Logger   // optional logger; one is created per LogLevel otherwise
	LogLevel LogLevel      // used only when Logger is nil
	Progress ProgressFn    // optional periodic progress callback
}

// NewOptions returns Options with default values.
func NewOptions() Options {
	return Options{
		Workers:  DefaultWorkers,
		FS:       OSFileSystem{},
		LogLevel: LogLevelInfo,
	}
}

// phase tracks the coordinator's lifecycle for diagnostics. Joined is
// terminal; no transition skips Running.
type phase int

const (
	phaseIdle phase = iota
	phaseSeeding
	phaseRunning
	phaseComplete
	phaseCancelled
	phaseJoined
)

func (p phase) String() string {
	switch p {
	case phaseSeeding:
		return "seeding"
	case phaseRunning:
		return "running"
	case phaseComplete:
		return "complete"
	case phaseCancelled:
		return "cancelled"
	case phaseJoined:
		return "joined"
	default:
		return "idle"
	}
}

// Pool coordinates one traversal run: it owns the work queue, seeds the
// roots, starts the workers, and detects when all work has settled.
type Pool struct {
	opts    Options
	queue   *workq.Queue[Entry]
	acc     *accumulator
	logger  *zap.Logger
	ownsLog bool
	phase   phase
}

// NewPool validates the options and prepares a coordinator. The same
// Pool must not be reused across runs.
func NewPool(opts Options) (*Pool, error) {
	if opts.Workers < 1 {
		return nil, ErrNoWorkers
	}
	if opts.FS == nil {
		opts.FS = OSFileSystem{}
	}
	p := &Pool{
		opts:  opts,
		queue: workq.New[Entry](),
	}
	if opts.Logger != nil {
		p.logger = opts.Logger
	} else {
		p.logger = createLogger(opts.LogLevel)
		p.ownsLog = true
	}
	return p, nil
}

// Run performs a complete traversal and is the usual entry point.
func Run(ctx context.Context, roots []string, visitor Visitor, opts Options) (*Result, error) {
	pool, err := NewPool(opts)
	if err != nil {
		return nil, err
	}
	return pool.Run(ctx, roots, visitor)
}

// Run seeds the roots, blocks until quiescence or cancellation, and
// returns the aggregated statistics and error log. Filesystem errors
// never fail the run; they are collected in the result.
func (p *Pool) Run(ctx context.Context, roots []string, visitor Visitor) (*Result, error) {
	if visitor == nil {
		return nil, ErrNilVisitor
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.ownsLog {
		defer p.logger.Sync()
	}

	start := time.Now()
	p.acc = newAccumulator(len(roots))

	// No roots means there is nothing outstanding: immediately
	// quiescent, empty result.
	if len(roots) == 0 {
		p.setPhase(phaseComplete)
		p.setPhase(phaseJoined)
		return p.acc.result(roots, Completed, time.Since(start)), nil
	}

	p.setPhase(phaseSeeding)
	for i, root := range roots {
		p.queue.Push(Entry{Path: filepath.Clean(root), Root: i})
	}

	p.setPhase(phaseRunning)
	p.logger.Debug("starting walk",
		zap.Strings("roots", roots),
		zap.Int("workers", p.opts.Workers),
	)

	var workerWg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		w := &worker{
			id:      i,
			queue:   p.queue,
			fs:      p.opts.FS,
			visitor: visitor,
			filter:  p.opts.Filter,
			acc:     p.acc,
			logger:  p.logger,
		}
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			w.run(ctx)
		}()
	}

	// Cancellation support: shutting the queue down releases every
	// blocked Pop. Workers finish the entry they hold and exit at the
	// next dequeue.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.logger.Debug("run cancelled", zap.Error(ctx.Err()))
			p.queue.Shutdown()
		case <-watchDone:
		}
	}()

	var tickerWg sync.WaitGroup
	if p.opts.Progress != nil {
		tickerWg.Add(1)
		go func() {
			defer tickerWg.Done()
			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-watchDone:
					return
				case <-ticker.C:
					p.opts.Progress(p.acc.snapshot(time.Since(start)))
				}
			}
		}()
	}

	workerWg.Wait()
	// Uniform exit trigger; a no-op when the queue quiesced on its own.
	p.queue.Shutdown()
	close(watchDone)
	tickerWg.Wait()

	outcome := Completed
	if !p.queue.Quiescent() {
		outcome = Cancelled
	}
	if outcome == Completed {
		p.setPhase(phaseComplete)
	} else {
		p.setPhase(phaseCancelled)
	}

	res := p.acc.result(roots, outcome, time.Since(start))
	if p.opts.Progress != nil {
		p.opts.Progress(res.Stats)
	}
	p.setPhase(phaseJoined)

	p.logger.Debug("walk finished",
		zap.String("outcome", outcome.String()),
		zap.Int64("files", res.FilesVisited),
		zap.Int64("dirs", res.DirsVisited),
		zap.Int64("errors", res.ErrorCount),
		zap.Duration("elapsed", res.ElapsedTime),
	)
	return res, nil
}

func (p *Pool) setPhase(next phase) {
	p.logger.Debug("pool phase", zap.String("from", p.phase.String()), zap.String("to", next.String()))
	p.phase = next
}
