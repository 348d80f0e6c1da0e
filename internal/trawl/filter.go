package trawl

import (
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
)

// FilterOptions defines criteria for including files and pruning
// directories. The zero value disables all filtering. Filtered files
// are counted but not visited; excluded directories are neither visited
// nor descended into (seeded roots are exempt from ExcludeDir).
type FilterOptions struct {
	MinSize        int64     // Minimum file size in bytes
	MaxSize        int64     // Maximum file size in bytes
	Pattern        string    // Glob pattern matched against base names
	ExcludeDir     []string  // Glob patterns matched against directory base names
	IncludeTypes   []string  // File extensions to include (e.g. ".txt", ".go")
	ModifiedAfter  time.Time // Only include files modified after
	ModifiedBefore time.Time // Only include files modified before
}

// filePassesFilter returns true if the file meets the filtering
// criteria. Name and pattern are NFC-normalized before glob matching so
// that differently composed Unicode spellings compare equal.
func filePassesFilter(info os.FileInfo, filter FilterOptions) bool {
	if filter.MinSize > 0 && info.Size() < filter.MinSize {
		return false
	}
	if filter.MaxSize > 0 && info.Size() > filter.MaxSize {
		return false
	}

	if !filter.ModifiedAfter.IsZero() && info.ModTime().Before(filter.ModifiedAfter) {
		return false
	}
	if !filter.ModifiedBefore.IsZero() && info.ModTime().After(filter.ModifiedBefore) {
		return false
	}

	// Match against the base name, not the full path.
	if filter.Pattern != "" {
		matched, err := filepath.Match(norm.NFC.String(filter.Pattern), norm.NFC.String(info.Name()))
		if err != nil || !matched {
			return false
		}
	}

	if len(filter.IncludeTypes) > 0 {
		ext := filepath.Ext(info.Name())
		var found bool
		for _, typ := range filter.IncludeTypes {
			if ext == typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// excludesDir reports whether a directory base name matches any of the
// exclude patterns.
func excludesDir(name string, excludes []string) bool {
	for _, exclude := range excludes {
		if matched, _ := filepath.Match(norm.NFC.String(exclude), norm.NFC.String(name)); matched {
			return true
		}
	}
	return false
}
