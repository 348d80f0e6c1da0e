package trawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEvent represents a filesystem event type.
type WatchEvent string

// Watch event types.
const (
	EventCreate WatchEvent = "create"
	EventModify WatchEvent = "modify"
	EventDelete WatchEvent = "delete"
	EventRename WatchEvent = "rename"
	EventChmod  WatchEvent = "chmod"
)

// WatchOptions defines options for watching filesystem changes after an
// initial traversal.
type WatchOptions struct {
	// Events to watch for. If empty, all events are watched.
	Events []WatchEvent

	// Whether to watch subdirectories recursively. Recursive watches
	// register every directory discovered by a traversal run.
	Recursive bool

	// Pattern to match files (e.g. "*.go").
	Pattern string

	// Pattern to ignore files.
	IgnorePattern string

	// Whether to include hidden files and directories.
	IncludeHidden bool

	// Worker count for the registration traversal. Defaults to
	// DefaultWorkers.
	Workers int

	// Timeout duration (0 means watch until the context is cancelled).
	Timeout time.Duration
}

// WatchMessage contains information about one filesystem event.
type WatchMessage struct {
	Path  string     // Full path to the file
	Name  string     // Base name of the file
	Dir   string     // Directory containing the file
	Size  int64      // Size in bytes (0 for deleted files)
	Time  time.Time  // Modification time
	IsDir bool       // Whether it's a directory
	Event WatchEvent // Event type
}

// WatchResult is one event delivered to a WatchHandler. Exactly one of
// Message and Error is meaningful.
type WatchResult struct {
	Message WatchMessage
	Error   error
}

// WatchHandler processes watch events.
type WatchHandler func(ctx context.Context, result WatchResult) error

func defaultWatchHandler() WatchHandler {
	return func(ctx context.Context, result WatchResult) error {
		if result.Error != nil {
			return result.Error
		}
		fmt.Printf("%s: %s\n", strings.ToUpper(string(result.Message.Event)), result.Message.Path)
		return nil
	}
}

// Watch monitors a directory tree for filesystem changes and dispatches
// each event to handler. When Recursive is set, the directories to
// watch are discovered with a traversal run over root, so registration
// parallelizes the same way a walk does. Newly created directories are
// added to the watch set as their create events arrive.
//
// Watch blocks until ctx is done or the optional Timeout elapses.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	if handler == nil {
		handler = defaultWatchHandler()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(root); err != nil {
		return fmt.Errorf("error watching directory %s: %w", root, err)
	}

	if opts.Recursive {
		if err := registerTree(ctx, root, opts, watcher); err != nil {
			return fmt.Errorf("error registering directory tree: %w", err)
		}
	}

	eventMap := make(map[fsnotify.Op]bool)
	if len(opts.Events) > 0 {
		for _, e := range opts.Events {
			switch e {
			case EventCreate:
				eventMap[fsnotify.Create] = true
			case EventModify:
				eventMap[fsnotify.Write] = true
			case EventDelete:
				eventMap[fsnotify.Remove] = true
			case EventRename:
				eventMap[fsnotify.Rename] = true
			case EventChmod:
				eventMap[fsnotify.Chmod] = true
			}
		}
	} else {
		eventMap[fsnotify.Create] = true
		eventMap[fsnotify.Write] = true
		eventMap[fsnotify.Remove] = true
		eventMap[fsnotify.Rename] = true
		eventMap[fsnotify.Chmod] = true
	}

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				dispatchEvent(ctx, event, eventMap, opts, watcher, handler)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				handler(ctx, WatchResult{
					Error: fmt.Errorf("watcher error: %w", err),
				})

			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	wg.Wait()
	return nil
}

// registerTree adds every directory under root to the watcher, using
// the pool engine for discovery. Registration failures are reported to
// stderr and skipped, matching the walk engine's fail-soft stance.
func registerTree(ctx context.Context, root string, opts WatchOptions, watcher *fsnotify.Watcher) error {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	var mu sync.Mutex
	visitor := VisitorFunc(func(ctx context.Context, entry Entry, info os.FileInfo) error {
		if !info.IsDir() || entry.Depth == 0 {
			return nil
		}
		if !opts.IncludeHidden && isHidden(entry.Path) {
			return nil
		}
		// fsnotify watchers are not documented as concurrency-safe for Add.
		mu.Lock()
		defer mu.Unlock()
		if err := watcher.Add(entry.Path); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching directory %s: %v\n", entry.Path, err)
		}
		return nil
	})

	runOpts := NewOptions()
	runOpts.Workers = workers
	runOpts.LogLevel = LogLevelError
	if !opts.IncludeHidden {
		runOpts.Filter.ExcludeDir = []string{".*"}
	}
	_, err := Run(ctx, []string{root}, visitor, runOpts)
	return err
}

// dispatchEvent filters one fsnotify event and forwards it to the
// handler.
func dispatchEvent(ctx context.Context, event fsnotify.Event, eventMap map[fsnotify.Op]bool, opts WatchOptions, watcher *fsnotify.Watcher, handler WatchHandler) {
	var eventType WatchEvent
	switch {
	case event.Has(fsnotify.Create) && eventMap[fsnotify.Create]:
		eventType = EventCreate
	case event.Has(fsnotify.Write) && eventMap[fsnotify.Write]:
		eventType = EventModify
	case event.Has(fsnotify.Remove) && eventMap[fsnotify.Remove]:
		eventType = EventDelete
	case event.Has(fsnotify.Rename) && eventMap[fsnotify.Rename]:
		eventType = EventRename
	case event.Has(fsnotify.Chmod) && eventMap[fsnotify.Chmod]:
		eventType = EventChmod
	default:
		return
	}

	var fileInfo os.FileInfo
	if !event.Has(fsnotify.Remove) {
		var err error
		fileInfo, err = os.Stat(event.Name)
		if err != nil {
			handler(ctx, WatchResult{
				Error: fmt.Errorf("error getting file info for %s: %w", event.Name, err),
			})
			return
		}

		// New directories join the watch set so events keep flowing as
		// the tree grows.
		if opts.Recursive && fileInfo.IsDir() && event.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				handler(ctx, WatchResult{
					Error: fmt.Errorf("error watching new directory %s: %w", event.Name, err),
				})
			}
		}
	}

	if opts.Pattern != "" {
		matched, err := filepath.Match(opts.Pattern, filepath.Base(event.Name))
		if err != nil {
			handler(ctx, WatchResult{
				Error: fmt.Errorf("error matching pattern: %w", err),
			})
			return
		}
		if !matched {
			return
		}
	}

	if opts.IgnorePattern != "" {
		matched, err := filepath.Match(opts.IgnorePattern, filepath.Base(event.Name))
		if err != nil {
			handler(ctx, WatchResult{
				Error: fmt.Errorf("error matching ignore pattern: %w", err),
			})
			return
		}
		if matched {
			return
		}
	}

	if !opts.IncludeHidden && isHidden(event.Name) {
		return
	}

	msg := WatchMessage{
		Path:  event.Name,
		Name:  filepath.Base(event.Name),
		Dir:   filepath.Dir(event.Name),
		Time:  time.Now(),
		Event: eventType,
	}
	if fileInfo != nil {
		msg.Size = fileInfo.Size()
		msg.IsDir = fileInfo.IsDir()
		msg.Time = fileInfo.ModTime()
	}

	if err := handler(ctx, WatchResult{Message: msg}); err != nil {
		handler(ctx, WatchResult{
			Error: fmt.Errorf("error handling event: %w", err),
		})
	}
}

// isHidden reports whether any path element starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
