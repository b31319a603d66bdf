// Package listing enumerates directories and renders them as HTML index pages.
package listing

import (
	"fmt"
	"os"
	"path/filepath"
)

// Title is the fixed title and heading of every listing page.
const Title = "Directory Listing"

// Entry describes one item of a directory listing.
type Entry struct {
	// Name is the entry's base name as returned by the filesystem.
	Name string
	// IsDir reports whether the entry, after following symlinks, is a directory.
	IsDir bool
	// Size is the file size in bytes. It is zero for directories.
	Size int64
}

// Read enumerates dir and stats every entry to tell directories from files.
//
// Entries keep the order in which the filesystem returns them; they are not
// sorted. An entry that cannot be stat'ed (a dangling symlink, for example) is
// listed as a file of size zero.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	defer f.Close()

	dirents, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		e := Entry{Name: d.Name()}
		if info, err := os.Stat(filepath.Join(dir, d.Name())); err == nil {
			e.IsDir = info.IsDir()
			if !e.IsDir {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
