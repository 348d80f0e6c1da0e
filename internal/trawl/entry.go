package trawl

// EntryType is the node type hint a parent directory listing provides
// for a child before the child has been statted.
type EntryType int

const (
	TypeUnknown EntryType = iota // hint unavailable (seeded roots, exotic dirent types)
	TypeFile                     // regular file
	TypeDir                      // directory
)

// String returns a short name for the type hint.
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Entry describes one filesystem node awaiting processing. Entries are
// immutable values: the queue owns an entry while it is queued, and
// exactly one worker owns it after dequeue, so no node is ever visited
// twice.
type Entry struct {
	Path  string    // cleaned path to the node
	Depth int       // 0 for seeded roots, parent depth + 1 otherwise
	Root  int       // index of the originating root, for per-root stats
	Hint  EntryType // type reported by the parent listing, if any
}
