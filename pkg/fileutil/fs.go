package fileutil

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem is the read-only view used to load songs and SoundFonts. Every
// lookup falls back to a case-insensitive match of the last path element.
type FileSystem interface {
	Open(name string) (fs.File, error)
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	// BasePath is the directory names are resolved against.
	BasePath() string
	IsEmbedded() bool
}

// RealFS reads from the operating system.
type RealFS struct {
	basePath string
}

// NewRealFS returns a FileSystem rooted at basePath. An empty basePath
// resolves names against the working directory, and absolute names are
// used as given.
func NewRealFS(basePath string) *RealFS {
	return &RealFS{basePath: basePath}
}

func (r *RealFS) Open(name string) (fs.File, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (r *RealFS) ReadFile(name string) ([]byte, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (r *RealFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(r.resolvePath(name))
}

func (r *RealFS) BasePath() string { return r.basePath }

func (r *RealFS) IsEmbedded() bool { return false }

func (r *RealFS) resolvePath(name string) string {
	if filepath.IsAbs(name) || r.basePath == "" {
		return name
	}
	return filepath.Join(r.basePath, name)
}

func (r *RealFS) lookup(name string) (string, error) {
	p := r.resolvePath(name)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
}

// EmbedFS reads from an fs.FS such as an embed.FS of bundled songs.
type EmbedFS struct {
	fsys     fs.FS
	basePath string
}

// NewEmbedFS returns a FileSystem over fsys with names resolved below basePath.
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	return &EmbedFS{fsys: fsys, basePath: basePath}
}

func (e *EmbedFS) Open(name string) (fs.File, error) {
	p, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.fsys.Open(p)
}

func (e *EmbedFS) ReadFile(name string) ([]byte, error) {
	p, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(e.fsys, p)
}

func (e *EmbedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(e.fsys, e.resolvePath(name))
}

func (e *EmbedFS) BasePath() string { return e.basePath }

func (e *EmbedFS) IsEmbedded() bool { return true }

// resolvePath converts name to a slash-separated path below basePath.
// fs.FS paths never start with a slash.
func (e *EmbedFS) resolvePath(name string) string {
	clean := strings.TrimLeft(strings.ReplaceAll(name, "\\", "/"), "/")
	if clean == "" {
		clean = "."
	}
	if e.basePath == "" {
		return path.Clean(clean)
	}
	return path.Join(e.basePath, clean)
}

func (e *EmbedFS) lookup(name string) (string, error) {
	p := e.resolvePath(name)
	if _, err := fs.Stat(e.fsys, p); err == nil {
		return p, nil
	}
	return FindFileCaseInsensitiveFS(e.fsys, path.Dir(p), path.Base(p))
}
