package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/ratinggame/internal/tracker"
)

const keyPrefix = "rategame:tracker"

// Store is a Redis-backed tracker.Store. Records are stored as JSON under
// rategame:tracker:<namespace>:<key>.
type Store[V any] struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// New creates a store for one kind of record. A zero ttl keeps records until evicted.
func New[V any](client *redis.Client, namespace string, ttl time.Duration) *Store[V] {
	return &Store[V]{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

// Ensure Store implements the interface
var _ tracker.Store[int] = (*Store[int])(nil)

func (s *Store[V]) key(k string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, s.namespace, k)
}

func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, false, nil
		}
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode tracker record %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Store[V]) Put(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *Store[V]) Evict(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *Store[V]) Keys(ctx context.Context) ([]string, error) {
	prefix := s.key("")
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
