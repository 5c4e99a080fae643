package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryBucket keeps objects in process memory. Stored bytes are copied on
// the way in and out.
type MemoryBucket struct {
	mu      sync.RWMutex
	name    string
	objects map[string][]byte
}

func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{name: name, objects: make(map[string][]byte)}
}

func (m *MemoryBucket) Ensure(context.Context) error { return nil }

func (m *MemoryBucket) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MemoryBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

func (m *MemoryBucket) Name() string { return m.name }
