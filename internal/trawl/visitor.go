package trawl

import (
	"context"
	"os"
)

// Visitor is the per-entry callback capability supplied by the caller.
// The engine invokes Visit exactly once for every discovered node.
// Calls from different workers may run concurrently, so implementations
// that share state must synchronize it themselves.
//
// A non-nil error is recorded in the run's error log and the traversal
// continues; returning an error never aborts the run. Callers that want
// abort-on-error semantics should cancel the run's context from inside
// the visitor.
type Visitor interface {
	Visit(ctx context.Context, entry Entry, info os.FileInfo) error
}

// VisitorFunc adapts a plain function to the Visitor interface.
type VisitorFunc func(ctx context.Context, entry Entry, info os.FileInfo) error

// Visit calls f.
func (f VisitorFunc) Visit(ctx context.Context, entry Entry, info os.FileInfo) error {
	return f(ctx, entry, info)
}

// DirEnterer is an optional interface a Visitor may implement to veto
// descent into a directory. EnterDir is consulted after the directory
// itself has been visited; returning false means its children are never
// listed or enqueued.
type DirEnterer interface {
	EnterDir(ctx context.Context, entry Entry, info os.FileInfo) bool
}

// DirExiter is an optional interface a Visitor may implement to observe
// the end of a directory's expansion. ExitDir runs after the children
// have been enqueued, and also when descent was vetoed or the listing
// failed.
type DirExiter interface {
	ExitDir(ctx context.Context, entry Entry, info os.FileInfo)
}
