package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memLocalStore is a map-backed LocalStore. It honors the same per-operation
// atomicity contract as the sqlite store and exists for tests and for hosts
// that want a throwaway engine without touching disk.
type memLocalStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemLocalStore returns an empty in-memory LocalStore.
func NewMemLocalStore() LocalStore {
	return &memLocalStore{items: make(map[string][]byte)}
}

func (s *memLocalStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *memLocalStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.items[key] = stored
	return nil
}

func (s *memLocalStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *memLocalStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
