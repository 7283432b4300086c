package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/tracker"
)

// RateLimiterConfig holds the sliding window policy
type RateLimiterConfig struct {
	Window      time.Duration
	MaxRequests int
}

// DefaultRateLimiterConfig allows 100 requests per address per minute
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Window:      time.Minute,
		MaxRequests: 100,
	}
}

// RateLimiter is a per-address sliding window request limiter. Rejected requests are
// not recorded, so a client that keeps hammering is admitted again as soon as its
// oldest admitted request leaves the window.
type RateLimiter struct {
	mu    sync.Mutex
	store tracker.Store[[]time.Time]
	clock clock.Clock
	cfg   RateLimiterConfig
}

// NewRateLimiter creates a RateLimiter over the given store
func NewRateLimiter(store tracker.Store[[]time.Time], clk clock.Clock, cfg RateLimiterConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimiterConfig().Window
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultRateLimiterConfig().MaxRequests
	}
	return &RateLimiter{
		store: store,
		clock: clk,
		cfg:   cfg,
	}
}

// IsLimited reports whether a request from addr must be rejected. An admitted request
// is recorded in the window.
func (l *RateLimiter) IsLimited(ctx context.Context, addr string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits, _, err := l.store.Get(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("load request window: %w", err)
	}

	now := l.clock.Now()
	hits = l.live(hits, now)

	limited := len(hits) >= l.cfg.MaxRequests
	if !limited {
		hits = append(hits, now)
	}

	if err := l.store.Put(ctx, addr, hits); err != nil {
		return false, fmt.Errorf("save request window: %w", err)
	}
	return limited, nil
}

// Prune evicts every address whose window holds no live requests and returns how many
// were removed
func (l *RateLimiter) Prune(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys, err := l.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list request windows: %w", err)
	}

	now := l.clock.Now()
	removed := 0
	for _, addr := range keys {
		hits, ok, err := l.store.Get(ctx, addr)
		if err != nil {
			return removed, fmt.Errorf("load request window: %w", err)
		}
		if ok && len(l.live(hits, now)) > 0 {
			continue
		}
		if err := l.store.Evict(ctx, addr); err != nil {
			return removed, fmt.Errorf("evict request window: %w", err)
		}
		removed++
	}
	return removed, nil
}

// live returns the timestamps still inside the window ending at now
func (l *RateLimiter) live(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.cfg.Window)
	kept := make([]time.Time, 0, len(hits))
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
