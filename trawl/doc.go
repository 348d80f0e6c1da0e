// Package trawl provides concurrent filesystem traversal built around a
// work queue with explicit termination detection.
//
// A traversal run seeds one entry per root into a shared queue and
// drains it with a fixed pool of workers. Each worker stats its entry,
// invokes the caller-supplied Visitor, and enqueues the children of
// directories it encounters. The queue tracks how many entries are
// outstanding; the run ends exactly when that count returns to zero, or
// earlier when the caller cancels the context.
//
// Basic usage:
//
//	result, err := trawl.Walk("/var/log", trawl.VisitorFunc(
//		func(ctx context.Context, entry trawl.Entry, info os.FileInfo) error {
//			fmt.Println(entry.Path)
//			return nil
//		}))
//
// With explicit options:
//
//	opts := trawl.NewOptions()
//	opts.Workers = 16
//	opts.Filter.Pattern = "*.log"
//	result, err := trawl.Run(ctx, []string{"/var/log", "/srv"}, visitor, opts)
//
// Filesystem errors never abort a run: failed stats and unreadable
// directories are recorded in result.Errors and the walk continues.
// Visitor errors and panics are isolated the same way. Visitation order
// is nondeterministic across subtrees; only the set of visited nodes is
// guaranteed.
//
// The watch API monitors a tree for changes after an initial traversal:
//
//	err := trawl.Watch(ctx, "/path/to/watch", trawl.WatchOptions{
//		Recursive: true,
//		Events:    []trawl.WatchEvent{trawl.EventCreate, trawl.EventModify},
//	}, nil)
package trawl
