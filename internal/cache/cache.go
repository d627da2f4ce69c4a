// Package cache is a small in-memory TTL store used by the data services
// when caching is enabled. One Store per record type keeps lookups typed.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	expiresAt time.Time
	value     T
}

// Store caches values per request key for a TTL, with a best-effort cap on
// the number of entries. A nil *Store is a no-op, so callers can hold one
// unconditionally and only allocate it when caching is enabled.
type Store[T any] struct {
	ttl      time.Duration
	maxItems int

	mu    sync.RWMutex
	items map[string]entry[T]
}

func New[T any](ttl time.Duration, maxItems int) *Store[T] {
	if ttl <= 0 {
		return nil
	}
	return &Store[T]{
		ttl:      ttl,
		maxItems: maxItems,
		items:    make(map[string]entry[T]),
	}
}

// Get returns the cached value for key while it is still fresh.
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	if !ok || time.Now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the configured TTL.
func (s *Store[T]) Set(key string, value T) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry[T]{expiresAt: time.Now().Add(s.ttl), value: value}

	if s.maxItems <= 0 || len(s.items) <= s.maxItems {
		return
	}
	// Evict expired entries first, then arbitrary keys until under the cap.
	now := time.Now()
	for k, e := range s.items {
		if len(s.items) <= s.maxItems {
			return
		}
		if now.After(e.expiresAt) {
			delete(s.items, k)
		}
	}
	for k := range s.items {
		if len(s.items) <= s.maxItems {
			return
		}
		delete(s.items, k)
	}
}
