package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trawlfs/trawl/trawl"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trawl [options] <path>...",
	Short: "A concurrent filesystem traversal utility",
	Long: `trawl walks one or more directory trees with a pool of concurrent
workers, prints the files it finds, and reports totals. Filesystem
errors are collected and reported at the end instead of aborting the
walk.`,
	Version: version,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWalk(args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.Flags().StringP("workers", "w", "4", "Number of concurrent workers")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().Bool("silent", false, "Disable all output except errors")
	rootCmd.Flags().String("format", "text", "Output format (text|json)")
	rootCmd.Flags().String("min-size", "", "Minimum file size to report")
	rootCmd.Flags().String("max-size", "", "Maximum file size to report")
	rootCmd.Flags().String("pattern", "", "File pattern to match")
	rootCmd.Flags().String("exclude-dir", "", "Directories to exclude (comma-separated)")
	rootCmd.Flags().String("include-type", "", "File extensions to include (comma-separated)")
	rootCmd.Flags().Bool("progress", false, "Show progress updates")
	rootCmd.Flags().Bool("errors", false, "Print each recorded error on completion")

	// Bind flags to viper
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.Flags().Lookup("silent"))
	viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("min-size", rootCmd.Flags().Lookup("min-size"))
	viper.BindPFlag("max-size", rootCmd.Flags().Lookup("max-size"))
	viper.BindPFlag("pattern", rootCmd.Flags().Lookup("pattern"))
	viper.BindPFlag("exclude-dir", rootCmd.Flags().Lookup("exclude-dir"))
	viper.BindPFlag("include-type", rootCmd.Flags().Lookup("include-type"))
	viper.BindPFlag("progress", rootCmd.Flags().Lookup("progress"))
	viper.BindPFlag("errors", rootCmd.Flags().Lookup("errors"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".trawl" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trawl")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func buildOptions() (trawl.Options, error) {
	opts := trawl.NewOptions()

	workersStr := viper.GetString("workers")
	workers, err := strconv.Atoi(workersStr)
	if err != nil {
		return opts, fmt.Errorf("invalid workers value: %s", workersStr)
	}
	opts.Workers = workers

	if minSizeStr := viper.GetString("min-size"); minSizeStr != "" {
		minSize, err := strconv.ParseInt(minSizeStr, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid min-size value: %s", minSizeStr)
		}
		opts.Filter.MinSize = minSize
	}

	if maxSizeStr := viper.GetString("max-size"); maxSizeStr != "" {
		maxSize, err := strconv.ParseInt(maxSizeStr, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid max-size value: %s", maxSizeStr)
		}
		opts.Filter.MaxSize = maxSize
	}

	if pattern := viper.GetString("pattern"); pattern != "" {
		opts.Filter.Pattern = pattern
	}

	if excludeDirs := viper.GetString("exclude-dir"); excludeDirs != "" {
		opts.Filter.ExcludeDir = strings.Split(excludeDirs, ",")
	}

	if includeTypes := viper.GetString("include-type"); includeTypes != "" {
		opts.Filter.IncludeTypes = strings.Split(includeTypes, ",")
	}

	if viper.GetBool("verbose") {
		opts.LogLevel = trawl.LogLevelDebug
	} else if viper.GetBool("silent") {
		opts.LogLevel = trawl.LogLevelError
	} else {
		opts.LogLevel = trawl.LogLevelWarn
	}

	if viper.GetBool("progress") {
		format := viper.GetString("format")
		opts.Progress = func(stats trawl.Stats) {
			if format == "json" {
				jsonStats, _ := json.Marshal(stats)
				fmt.Println(string(jsonStats))
			} else {
				fmt.Printf("\rProcessed: %d files, %d dirs, %s, %.2f MB/s",
					stats.FilesVisited, stats.DirsVisited,
					humanize.Bytes(uint64(stats.BytesSeen)), stats.SpeedMBPerSec)
			}
		}
	}

	return opts, nil
}

func runWalk(roots []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	format := viper.GetString("format")
	silent := viper.GetBool("silent")
	progress := viper.GetBool("progress")

	counter := trawl.NewCountingVisitor(roots)
	visitor := trawl.VisitorFunc(func(ctx context.Context, entry trawl.Entry, info os.FileInfo) error {
		if err := counter.Visit(ctx, entry, info); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if format == "json" {
			line, _ := json.Marshal(map[string]interface{}{
				"path":  entry.Path,
				"size":  info.Size(),
				"mode":  info.Mode().String(),
				"depth": entry.Depth,
			})
			fmt.Println(string(line))
		} else if !silent && !progress {
			fmt.Printf("%s (%s)\n", entry.Path, humanize.Bytes(uint64(info.Size())))
		}
		return nil
	})

	result, err := trawl.Run(context.Background(), roots, visitor, opts)
	if err != nil {
		return err
	}

	if progress {
		fmt.Println()
	}
	if !silent {
		printSummary(result)
	}
	if viper.GetBool("errors") {
		for _, walkErr := range result.Errors {
			fmt.Fprintln(os.Stderr, walkErr.Error())
		}
	}
	return nil
}

func printSummary(result *trawl.Result) {
	if viper.GetString("format") == "json" {
		summary, _ := json.Marshal(map[string]interface{}{
			"outcome": result.Outcome.String(),
			"files":   result.FilesVisited,
			"dirs":    result.DirsVisited,
			"others":  result.OthersVisited,
			"bytes":   result.BytesSeen,
			"errors":  result.ErrorCount,
			"elapsed": result.ElapsedTime.String(),
		})
		fmt.Println(string(summary))
		return
	}
	fmt.Printf("%s: %d files, %d dirs, %s in %s (%d errors)\n",
		result.Outcome, result.FilesVisited, result.DirsVisited,
		humanize.Bytes(uint64(result.BytesSeen)),
		result.ElapsedTime.Round(time.Millisecond), result.ErrorCount)
}
