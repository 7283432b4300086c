package memory

import (
	"context"
	"sync"

	"github.com/mcoot/ratinggame/internal/tracker"
)

// Store is an in-process tracker.Store. Entries are kept until evicted.
type Store[V any] struct {
	mu      sync.RWMutex
	records map[string]V
}

// New creates an empty in-memory store
func New[V any]() *Store[V] {
	return &Store[V]{
		records: make(map[string]V),
	}
}

// Ensure Store implements the interface
var _ tracker.Store[int] = (*Store[int])(nil)

func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok, nil
}

func (s *Store[V]) Put(ctx context.Context, key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	return nil
}

func (s *Store[V]) Evict(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *Store[V]) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys, nil
}

// Len returns the number of records held
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
