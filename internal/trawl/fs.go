package trawl

import (
	"os"

	"github.com/karrick/godirwalk"
)

// Child is one name discovered while listing a directory, together
// with the type hint the directory entry itself carries.
type Child struct {
	Name string
	Hint EntryType
}

// FileSystem is the metadata and listing boundary the engine traverses
// through. Stat must use lstat semantics (symlinks are not followed).
// Implementations are called concurrently from multiple workers and
// must be safe for that.
//
// The default is OSFileSystem; tests substitute fault-injecting
// implementations.
type FileSystem interface {
	Stat(path string) (os.FileInfo, error)
	List(path string) ([]Child, error)
}

// OSFileSystem reads the real filesystem.
type OSFileSystem struct{}

// Stat returns metadata for path without following symlinks.
func (OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}

// List returns the immediate children of a directory. godirwalk reads
// raw dirents, so the type hints come for free without a stat per
// child.
func (OSFileSystem) List(path string) ([]Child, error) {
	dirents, err := godirwalk.ReadDirents(path, nil)
	if err != nil {
		return nil, err
	}
	children := make([]Child, 0, len(dirents))
	for _, dirent := range dirents {
		hint := TypeUnknown
		switch {
		case dirent.IsDir():
			hint = TypeDir
		case dirent.IsRegular():
			hint = TypeFile
		}
		children = append(children, Child{Name: dirent.Name(), Hint: hint})
	}
	return children, nil
}
