package store

import (
	"context"
	"sync"

	"opsdesk/pkg/platform/sentinel"
)

// MemoryCollection is the in-process record set used by tests and the dev
// profile.
type MemoryCollection[T any] struct {
	mu   sync.RWMutex
	docs map[string]T
}

func NewMemoryCollection[T any]() *MemoryCollection[T] {
	return &MemoryCollection[T]{docs: make(map[string]T)}
}

func (c *MemoryCollection[T]) Save(_ context.Context, key string, doc T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = doc
	return nil
}

func (c *MemoryCollection[T]) Find(_ context.Context, key string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[key]
	if !ok {
		var zero T
		return zero, sentinel.ErrNotFound
	}
	return doc, nil
}

func (c *MemoryCollection[T]) List(_ context.Context) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (c *MemoryCollection[T]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(c.docs, key)
	return nil
}
