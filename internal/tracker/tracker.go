package tracker

import "context"

// Store is a keyed record store for abuse-control state. Keys are client addresses.
//
// A Store makes no atomicity promise across calls: callers that read, modify and write
// a record must serialise those steps themselves.
type Store[V any] interface {
	// Get returns the record for key and whether it exists
	Get(ctx context.Context, key string) (V, bool, error)

	// Put replaces the record for key
	Put(ctx context.Context, key string, value V) error

	// Evict removes the record for key. Evicting a missing key is not an error.
	Evict(ctx context.Context, key string) error

	// Keys lists every key currently held
	Keys(ctx context.Context) ([]string, error)
}
