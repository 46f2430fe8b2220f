package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps tiles in process memory. Meant for development and
// tests; nothing is evicted.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	return obj, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, obj Object) error {
	body := make([]byte, len(obj.Body))
	copy(body, obj.Body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Body: body, ContentType: obj.ContentType}
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
