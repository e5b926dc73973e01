package corpus

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// ErrFileNotFound is returned by MemoryReader for unknown paths.
var ErrFileNotFound = errors.New("file not found")

// Reader returns the raw contents of a corpus file.
//
// Implementations must be safe for concurrent use: the scanner reads many
// files of one request in parallel.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// DiskReader reads files from the local filesystem. Paths are used as given,
// which matches a deployment where coordinator and workers mount the corpus
// at the same location.
type DiskReader struct{}

// ReadFile implements Reader.
func (DiskReader) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	return data, err
}

// MemoryReader serves file contents from memory. It backs tests and
// in-process deployments where the corpus is generated rather than mounted.
type MemoryReader struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryReader returns a MemoryReader seeded with files.
func NewMemoryReader(files map[string]string) *MemoryReader {
	m := &MemoryReader{files: make(map[string][]byte, len(files))}
	for path, content := range files {
		m.files[path] = []byte(content)
	}
	return m
}

// ReadFile implements Reader. The returned slice is a copy.
func (m *MemoryReader) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	if !ok {
		return nil, ErrFileNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores content under path, replacing any previous value.
func (m *MemoryReader) Put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}
