package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/tracker"
)

// LoginAttempt is the failure record kept per client address
type LoginAttempt struct {
	Count       int       `json:"count"`
	LockedUntil time.Time `json:"lockedUntil"`
}

// LoginGuardConfig holds the lockout policy
type LoginGuardConfig struct {
	MaxFailures int
	Lockout     time.Duration
}

// DefaultLoginGuardConfig locks an address for 15 minutes after 5 failures
func DefaultLoginGuardConfig() LoginGuardConfig {
	return LoginGuardConfig{
		MaxFailures: 5,
		Lockout:     15 * time.Minute,
	}
}

// LoginGuard tracks failed logins per client address and locks out repeat offenders.
//
// The failure count is only cleared by a successful login. Once an address has reached
// the threshold, every later failure re-arms the lock.
type LoginGuard struct {
	mu    sync.Mutex
	store tracker.Store[LoginAttempt]
	clock clock.Clock
	cfg   LoginGuardConfig
}

// NewLoginGuard creates a LoginGuard over the given store
func NewLoginGuard(store tracker.Store[LoginAttempt], clk clock.Clock, cfg LoginGuardConfig) *LoginGuard {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultLoginGuardConfig().MaxFailures
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLoginGuardConfig().Lockout
	}
	return &LoginGuard{
		store: store,
		clock: clk,
		cfg:   cfg,
	}
}

// CheckLocked reports whether addr is currently locked out
func (g *LoginGuard) CheckLocked(ctx context.Context, addr string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, ok, err := g.store.Get(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("load login attempts: %w", err)
	}
	if !ok {
		return false, nil
	}
	return attempt.LockedUntil.After(g.clock.Now()), nil
}

// RecordFailure counts a failed login for addr. It reports whether the address is
// locked as a result.
func (g *LoginGuard) RecordFailure(ctx context.Context, addr string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, _, err := g.store.Get(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("load login attempts: %w", err)
	}

	attempt.Count++
	locked := false
	if attempt.Count >= g.cfg.MaxFailures {
		attempt.LockedUntil = g.clock.Now().Add(g.cfg.Lockout)
		locked = true
	}

	if err := g.store.Put(ctx, addr, attempt); err != nil {
		return false, fmt.Errorf("save login attempts: %w", err)
	}
	return locked, nil
}

// RecordSuccess clears any failure history for addr
func (g *LoginGuard) RecordSuccess(ctx context.Context, addr string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Evict(ctx, addr); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}

// Attempts returns the current record for addr, mainly for diagnostics
func (g *LoginGuard) Attempts(ctx context.Context, addr string) (LoginAttempt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	attempt, _, err := g.store.Get(ctx, addr)
	return attempt, err
}
