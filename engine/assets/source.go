package assets

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

// Source hands out the raw bytes of an asset. Implementations must be safe
// for concurrent use since reads happen on worker goroutines.
type Source interface {
	ReadAsset(path string) ([]byte, error)
}

// notFound is the error every Source returns for a path it does not know.
func notFound(path string) error {
	return fmt.Errorf("%w: asset not found: %s", core.ErrIO, path)
}

// MemorySource serves assets generated at runtime.
type MemorySource struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemorySource() *MemorySource {
	return &MemorySource{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under path, replacing any previous entry.
func (ms *MemorySource) Put(path string, data []byte) {
	blob := make([]byte, len(data))
	copy(blob, data)

	ms.mu.Lock()
	ms.blobs[path] = blob
	ms.mu.Unlock()
}

func (ms *MemorySource) Delete(path string) {
	ms.mu.Lock()
	delete(ms.blobs, path)
	ms.mu.Unlock()
}

func (ms *MemorySource) ReadAsset(path string) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	blob, ok := ms.blobs[path]
	if !ok {
		return nil, notFound(path)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Chain asks each source in order; the first one that has the path wins.
type Chain []Source

func (c Chain) ReadAsset(path string) ([]byte, error) {
	var lastErr error
	for _, s := range c {
		if s == nil {
			continue
		}
		data, err := s.ReadAsset(path)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = notFound(path)
	}
	return nil, lastErr
}
