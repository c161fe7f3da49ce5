package store

import (
	"sync"
	"time"
)

// entry is a cached value with an absolute expiry.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a concurrency-safe in-memory TTL cache. Expired entries are
// dropped when they are read, never proactively.
type MemoryStore struct {
	mu sync.Mutex

	// key: request signature
	data map[string]entry

	// maxEntries caps the map size (0 = unlimited)
	maxEntries int
}

// NewMemoryStore creates a new MemoryStore. If maxEntries is <= 0 the store
// is unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
	}
}

// Get returns the live value for key. An entry is absent once now is after
// its expiry.
func (s *MemoryStore) Get(key string, now time.Time) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	if now.After(e.expiresAt) {
		delete(s.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key until expiresAt.
func (s *MemoryStore) Set(key string, value []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists && s.maxEntries > 0 && len(s.data) >= s.maxEntries {
		s.evictOne()
	}
	s.data[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// evictOne drops the entry closest to expiry. Caller holds mu.
func (s *MemoryStore) evictOne() {
	var (
		victim string
		soon   time.Time
	)
	for k, e := range s.data {
		if victim == "" || e.expiresAt.Before(soon) {
			victim = k
			soon = e.expiresAt
		}
	}
	if victim != "" {
		delete(s.data, victim)
	}
}
