package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/ratinggame/internal/imagehost"
)

// DefaultBaseURL prefixes the URLs handed out by an in-memory host. The API serves
// this path when the host is in use.
const DefaultBaseURL = "/uploads"

// Object is a stored upload
type Object struct {
	ContentType string
	Data        []byte
}

// Host keeps uploads in process memory
type Host struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// New creates an empty host. An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *Host {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Host{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

// Ensure Host implements the interface
var _ imagehost.Host = (*Host)(nil)

func (h *Host) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[key] = Object{
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	return h.baseURL + "/" + key, nil
}

func (h *Host) Delete(ctx context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[key]; !ok {
		return imagehost.ErrObjectNotFound
	}
	delete(h.objects, key)
	return nil
}

// Get returns the object stored under key
func (h *Host) Get(key string) (Object, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	obj, ok := h.objects[key]
	return obj, ok
}

// Keys returns every stored key in sorted order
func (h *Host) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.objects))
	for k := range h.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
