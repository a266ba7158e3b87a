package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps entries in a map. It is safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, bucket, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.buckets[bucket][key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (b *MemoryBackend) Put(_ context.Context, bucket, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries, ok := b.buckets[bucket]
	if !ok {
		entries = make(map[string][]byte)
		b.buckets[bucket] = entries
	}
	entries[key] = slices.Clone(value)
	return nil
}

func (b *MemoryBackend) Keys(_ context.Context, bucket string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.buckets[bucket]))
	for k := range b.buckets[bucket] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (b *MemoryBackend) Clear(_ context.Context, bucket string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.buckets, bucket)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
