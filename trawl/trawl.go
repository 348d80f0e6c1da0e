package trawl

import (
	"context"

	internal "github.com/trawlfs/trawl/internal/trawl"
)

// Re-export the engine types so callers only import this package.
type (
	// Entry describes one filesystem node handed to a visitor.
	Entry = internal.Entry

	// EntryType is the node type hint carried by an Entry.
	EntryType = internal.EntryType

	// Visitor is the per-entry callback capability.
	Visitor = internal.Visitor

	// VisitorFunc adapts a function to the Visitor interface.
	VisitorFunc = internal.VisitorFunc

	// DirEnterer optionally vetoes descent into a directory.
	DirEnterer = internal.DirEnterer

	// DirExiter optionally observes the end of a directory's expansion.
	DirExiter = internal.DirExiter

	// FileSystem is the metadata and listing boundary.
	FileSystem = internal.FileSystem

	// OSFileSystem reads the real filesystem.
	OSFileSystem = internal.OSFileSystem

	// Child is one name yielded by listing a directory.
	Child = internal.Child

	// FilterOptions defines include/exclude criteria.
	FilterOptions = internal.FilterOptions

	// Options configures a traversal run.
	Options = internal.Options

	// Pool coordinates one traversal run.
	Pool = internal.Pool

	// Stats is a snapshot of traversal counters.
	Stats = internal.Stats

	// Result is the aggregate outcome of one run.
	Result = internal.Result

	// RootStats tallies visits per seeded root.
	RootStats = internal.RootStats

	// WalkError records one recoverable failure.
	WalkError = internal.WalkError

	// ErrorKind classifies a recoverable failure.
	ErrorKind = internal.ErrorKind

	// Outcome reports how a run ended.
	Outcome = internal.Outcome

	// ProgressFn receives periodic statistics snapshots.
	ProgressFn = internal.ProgressFn

	// LogLevel defines logging verbosity.
	LogLevel = internal.LogLevel

	// Watch types
	WatchEvent   = internal.WatchEvent
	WatchOptions = internal.WatchOptions
	WatchMessage = internal.WatchMessage
	WatchResult  = internal.WatchResult
	WatchHandler = internal.WatchHandler
)

// Re-export the constants.
const (
	// Entry type hints
	TypeUnknown = internal.TypeUnknown
	TypeFile    = internal.TypeFile
	TypeDir     = internal.TypeDir

	// Run outcomes
	Completed = internal.Completed
	Cancelled = internal.Cancelled

	// Error kinds
	ErrKindStat    = internal.ErrKindStat
	ErrKindList    = internal.ErrKindList
	ErrKindVisitor = internal.ErrKindVisitor

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	// Watch event constants
	EventCreate = internal.EventCreate
	EventModify = internal.EventModify
	EventDelete = internal.EventDelete
	EventRename = internal.EventRename
	EventChmod  = internal.EventChmod
)

// Sentinel errors.
var (
	ErrNoWorkers  = internal.ErrNoWorkers
	ErrNilVisitor = internal.ErrNilVisitor
)

// Walk traverses the tree rooted at root with default options, invoking
// visitor once per discovered node.
func Walk(root string, visitor Visitor) (*Result, error) {
	return internal.Run(context.Background(), []string{root}, visitor, internal.NewOptions())
}

// Run traverses the trees rooted at roots with the given options.
func Run(ctx context.Context, roots []string, visitor Visitor, opts Options) (*Result, error) {
	return internal.Run(ctx, roots, visitor, opts)
}

// NewPool validates opts and returns a coordinator for one run.
func NewPool(opts Options) (*Pool, error) {
	return internal.NewPool(opts)
}

// NewOptions returns Options with default values.
func NewOptions() Options {
	return internal.NewOptions()
}

// Watch monitors a directory tree for filesystem changes.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, opts, handler)
}
