package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
)

const defaultMemoryEntries = 1024

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is a bounded in-process cache. Entries expire after the
// ttl given to Set, capped by the adapter's maximum age.
type MemoryAdapter struct {
	lru *expirable.LRU[string, memoryItem]
	now func() time.Time
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates a cache holding up to size entries for at most maxAge
func NewMemoryAdapter(size int, maxAge time.Duration) *MemoryAdapter {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	return &MemoryAdapter{
		lru: expirable.NewLRU[string, memoryItem](size, nil, maxAge),
		now: time.Now,
	}
}

// Get returns a copy of the cached value or ErrCacheMiss
func (m *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	item, ok := m.lru.Get(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		m.lru.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), item.value...), nil
}

// Set stores a copy of value
func (m *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.lru.Add(key, item)
	return nil
}

// Delete removes key
func (m *MemoryAdapter) Delete(ctx context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}
