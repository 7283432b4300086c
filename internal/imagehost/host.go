package imagehost

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when deleting or fetching a key the host does not hold
var ErrObjectNotFound = errors.New("object not found")

// Host stores uploaded image bytes and serves them at a public URL
type Host interface {
	// Upload stores data under key and returns the URL it is reachable at
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}
