// Package fileutil locates song and SoundFont files on disk or in an embedded
// file system, matching names without regard to case.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when no directory entry matches a lookup.
var ErrNotFound = errors.New("file not found")

// FindFileCaseInsensitive returns the path of the entry in dir whose name
// equals filename ignoring case. Song collections copied from other systems
// often use "SONG.MID" and "song.mid" interchangeably.
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if name, ok := matchEntry(entries, filename); ok {
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive over an fs.FS.
// The returned path uses forward slashes.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if name, ok := matchEntry(entries, filename); ok {
		return path.Join(dir, name), nil
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

func matchEntry(entries []fs.DirEntry, filename string) (string, bool) {
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return entry.Name(), true
		}
	}
	return "", false
}

// FindByExt lists the files in dir whose extension matches one of exts
// (case-insensitive, with the leading dot), sorted by name.
func FindByExt(fsys FileSystem, dir string, exts ...string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := path.Ext(entry.Name())
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				names = append(names, entry.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
