package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trawlfs/trawl/trawl"
)

var (
	// Watch command options
	watchEvents        []string
	watchRecursive     bool
	watchPattern       string
	watchIgnore        string
	watchTimeout       time.Duration
	watchWorkers       int
	watchIncludeHidden bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch for filesystem changes",
	Long: `Watch for filesystem changes and print events as files are created,
modified, or deleted. Recursive watches register every directory found
by an initial concurrent walk of the tree.

Examples:
  trawl watch /path/to/watch
  trawl watch --events=create,modify /path/to/watch
  trawl watch --pattern="*.go" --recursive /path/to/watch`,
	Run: func(cmd *cobra.Command, args []string) {
		// Get the directory to watch
		var watchDir string
		if len(args) > 0 {
			watchDir = args[0]
		} else {
			var err error
			watchDir, err = os.Getwd()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting current directory: %v\n", err)
				os.Exit(1)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Convert string events to WatchEvent types
		var events []trawl.WatchEvent
		for _, e := range watchEvents {
			switch strings.ToLower(e) {
			case "create":
				events = append(events, trawl.EventCreate)
			case "write", "modify":
				events = append(events, trawl.EventModify)
			case "remove", "delete":
				events = append(events, trawl.EventDelete)
			case "rename":
				events = append(events, trawl.EventRename)
			case "chmod":
				events = append(events, trawl.EventChmod)
			default:
				fmt.Fprintf(os.Stderr, "Unknown event type: %s\n", e)
			}
		}

		opts := trawl.WatchOptions{
			Events:        events,
			Recursive:     watchRecursive,
			Pattern:       watchPattern,
			IgnorePattern: watchIgnore,
			IncludeHidden: watchIncludeHidden,
			Workers:       watchWorkers,
			Timeout:       watchTimeout,
		}

		fmt.Printf("Watching %s for changes...\n", watchDir)
		fmt.Println("Press Ctrl+C to exit.")

		if err := trawl.Watch(ctx, watchDir, opts, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching directory: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	// Define flags for the watch command
	watchCmd.Flags().StringSliceVar(&watchEvents, "events", []string{}, "Events to watch for (create, modify, delete, rename, chmod)")
	watchCmd.Flags().BoolVar(&watchRecursive, "recursive", false, "Watch subdirectories recursively")
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "", "File pattern to match (e.g., *.go)")
	watchCmd.Flags().StringVar(&watchIgnore, "ignore", "", "File pattern to ignore")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Duration to watch before exiting (e.g., 1h, 30m)")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "Workers for the registration walk (0 = default)")
	watchCmd.Flags().BoolVar(&watchIncludeHidden, "include-hidden", false, "Include hidden files and directories")
}
