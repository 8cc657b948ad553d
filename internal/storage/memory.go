package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process memory. It backs local development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	meta Metadata
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

// Put buffers r fully and stores it under id.
func (m *MemoryStorage) Put(ctx context.Context, id string, r io.Reader, meta Metadata) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory storage read %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = memoryObject{data: data, meta: meta}
	return nil
}

// Open returns a reader over the stored bytes.
func (m *MemoryStorage) Open(_ context.Context, id string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	obj, ok := m.objects[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, ErrNotFound
	}

	info := ObjectInfo{
		Size:        int64(len(obj.data)),
		ContentType: obj.meta.ContentType,
		Metadata:    obj.meta,
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

// Delete removes id. Missing objects are ignored.
func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

// Len reports how many objects are stored.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ BlobStore = (*MemoryStorage)(nil)
