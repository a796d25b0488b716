package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Source fetches the raw bytes of a named asset. Implementations must be
// safe for concurrent use by loader workers.
type Source interface {
	Load(name string) ([]byte, error)
}

// Directory reads assets from files below Root. Names use forward slashes
// and may not leave Root.
type Directory struct {
	Root string
}

func NewDirectory(root string) *Directory { return &Directory{Root: root} }

func (d *Directory) Load(name string) ([]byte, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Memory serves assets from an in-process map.
type Memory struct {
	mx    sync.RWMutex
	files map[string][]byte
}

func NewMemory(files map[string][]byte) *Memory {
	m := &Memory{files: make(map[string][]byte, len(files))}
	for k, v := range files {
		m.files[k] = v
	}
	return m
}

func (m *Memory) Set(name string, data []byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.files[name] = data
}

func (m *Memory) Load(name string) ([]byte, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}
