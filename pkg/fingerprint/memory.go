package fingerprint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]memoryEntry
	sets    map[string]map[string]struct{}
	expires map[string]time.Time
}

type memoryEntry struct {
	value string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
		expires: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expired(key) {
		return "", ErrNotFound
	}

	entry, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}

	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = memoryEntry{value: value}
	s.expires[key] = time.Now().Add(ttl)

	return nil
}

func (s *MemoryStore) AddToSet(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok || s.expired(key) {
		set = make(map[string]struct{})
		s.sets[key] = set
	}

	for _, member := range members {
		set[member] = struct{}{}
	}

	return nil
}

func (s *MemoryStore) Members(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.expired(key) {
		return nil, nil
	}

	members := make([]string, 0, len(s.sets[key]))
	for member := range s.sets[key] {
		members = append(members, member)
	}

	return members, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	delete(s.sets, key)
	delete(s.expires, key)

	return nil
}

func (s *MemoryStore) RefreshTTL(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expires[key] = time.Now().Add(ttl)

	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// expired reports whether key carries a TTL that has passed. Callers hold
// at least the read lock.
func (s *MemoryStore) expired(key string) bool {
	deadline, ok := s.expires[key]

	return ok && time.Now().After(deadline)
}
