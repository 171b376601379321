// Package fs abstracts the file reads done when loading bytecode bundles.
package fs

import (
	i_fs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FS is the subset of file system operations the loader needs.
type FS interface {
	ReadFile(name string) ([]byte, error)
	Stat(name string) (i_fs.FileInfo, error)
}

// osFS reads from the real file system.
type osFS struct{}

// NewOSFS returns an FS backed by the os package.
func NewOSFS() FS {
	return &osFS{}
}

func (f *osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (f *osFS) Stat(name string) (i_fs.FileInfo, error) {
	return os.Stat(name)
}

// MemoryFS is an in-memory FS keyed by cleaned path. It is safe for
// concurrent use.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFS creates a MemoryFS holding the given files.
func NewMemoryFS(files map[string]string) *MemoryFS {
	m := &MemoryFS{files: make(map[string][]byte, len(files))}
	for name, content := range files {
		m.files[filepath.Clean(name)] = []byte(content)
	}
	return m
}

// WriteFile adds or replaces a file.
func (m *MemoryFS) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(name)] = append([]byte(nil), data...)
}

func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, &i_fs.PathError{Op: "open", Path: name, Err: i_fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryFS) Stat(name string) (i_fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[filepath.Clean(name)]
	if !ok {
		return nil, &i_fs.PathError{Op: "stat", Path: name, Err: i_fs.ErrNotExist}
	}
	return memFileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
}

// Names returns the stored paths in sorted order.
func (m *MemoryFS) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type memFileInfo struct {
	name string
	size int64
}

func (fi memFileInfo) Name() string        { return fi.name }
func (fi memFileInfo) Size() int64         { return fi.size }
func (fi memFileInfo) Mode() i_fs.FileMode { return 0o444 }
func (fi memFileInfo) ModTime() time.Time  { return time.Time{} }
func (fi memFileInfo) IsDir() bool         { return false }
func (fi memFileInfo) Sys() any            { return nil }
