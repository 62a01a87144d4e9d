package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryBackend is a process-local Backend for tests and single-process
// deployments. It implements the same value, set, and counter primitives
// as Redis under one mutex.
type InMemoryBackend struct {
	mu       sync.RWMutex
	items    map[string]inMemoryItem
	sets     map[string]map[string]struct{}
	counters map[string]int64
}

type inMemoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryBackend creates an empty in-memory backend.
func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		items:    make(map[string]inMemoryItem),
		sets:     make(map[string]map[string]struct{}),
		counters: make(map[string]int64),
	}
}

func (b *InMemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	item, exists := b.items[key]
	if !exists {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (b *InMemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	b.items[key] = inMemoryItem{value: value, expiresAt: expiresAt}
	return nil
}

func (b *InMemoryBackend) Del(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range keys {
		delete(b.items, key)
		delete(b.sets, key)
		delete(b.counters, key)
	}
	return nil
}

func (b *InMemoryBackend) SAdd(ctx context.Context, key string, members ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.sets[key]
	if !ok {
		set = make(map[string]struct{})
		b.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (b *InMemoryBackend) SRem(ctx context.Context, key string, members ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(b.sets, key)
	}
	return nil
}

func (b *InMemoryBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	set, ok := b.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}

func (b *InMemoryBackend) Incr(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counters[key]++
	return b.counters[key], nil
}

func (b *InMemoryBackend) Pipelined(ctx context.Context, fn func(Backend) error) error {
	return fn(b)
}
