// Package memstore is an in-process cache store. Its contents do not survive
// a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

// Store keeps cache entries in a map.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// GetMulti returns copies of the values for keys, or domain.ErrCacheMiss if
// any key is absent.
func (s *Store) GetMulti(_ context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok := s.entries[k]
		if !ok {
			return nil, domain.ErrCacheMiss
		}
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

// SetMulti replaces all given entries under one lock.
func (s *Store) SetMulti(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.entries[k] = append([]byte(nil), v...)
	}
	return nil
}
