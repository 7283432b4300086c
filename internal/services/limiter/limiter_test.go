package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/ratinggame/internal/dependencies/mocks"
	"github.com/mcoot/ratinggame/internal/tracker/memory"
)

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type LoginGuardSuite struct {
	suite.Suite
	clock *mocks.MockClock
	store *memory.Store[LoginAttempt]
	guard *LoginGuard
	ctx   context.Context
}

func TestLoginGuardSuite(t *testing.T) {
	suite.Run(t, new(LoginGuardSuite))
}

func (s *LoginGuardSuite) SetupTest() {
	s.clock = mocks.NewMockClock(testStart)
	s.store = memory.New[LoginAttempt]()
	s.guard = NewLoginGuard(s.store, s.clock, DefaultLoginGuardConfig())
	s.ctx = context.Background()
}

func (s *LoginGuardSuite) fail(n int, addr string) {
	for i := 0; i < n; i++ {
		_, err := s.guard.RecordFailure(s.ctx, addr)
		s.Require().NoError(err)
	}
}

func (s *LoginGuardSuite) TestUnknownAddressNotLocked() {
	locked, err := s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(locked)
}

func (s *LoginGuardSuite) TestFourFailuresDoNotLock() {
	s.fail(4, "10.0.0.1")

	locked, err := s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(locked)
}

func (s *LoginGuardSuite) TestFifthFailureLocks() {
	s.fail(4, "10.0.0.1")

	locked, err := s.guard.RecordFailure(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(locked)

	locked, err = s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(locked)

	attempt, err := s.guard.Attempts(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.Equal(5, attempt.Count)
	s.Equal(testStart.Add(15*time.Minute), attempt.LockedUntil)
}

func (s *LoginGuardSuite) TestLockIsPerAddress() {
	s.fail(5, "10.0.0.1")

	locked, _ := s.guard.CheckLocked(s.ctx, "10.0.0.2")
	s.False(locked)
}

func (s *LoginGuardSuite) TestLockExpiresButCountPersists() {
	s.fail(5, "10.0.0.1")

	s.clock.Advance(15*time.Minute - time.Second)
	locked, _ := s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.True(locked)

	s.clock.Advance(time.Second)
	locked, _ = s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.False(locked, "lock ends once LockedUntil is reached")

	// A single further failure locks again because the count was never reset
	locked, err := s.guard.RecordFailure(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(locked)

	attempt, _ := s.guard.Attempts(s.ctx, "10.0.0.1")
	s.Equal(6, attempt.Count)
	s.Equal(s.clock.Now().Add(15*time.Minute), attempt.LockedUntil)
}

func (s *LoginGuardSuite) TestSuccessClearsRecord() {
	s.fail(5, "10.0.0.1")

	s.Require().NoError(s.guard.RecordSuccess(s.ctx, "10.0.0.1"))

	locked, _ := s.guard.CheckLocked(s.ctx, "10.0.0.1")
	s.False(locked)
	s.Equal(0, s.store.Len())
}

func (s *LoginGuardSuite) TestConcurrentFailuresAreAllCounted() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.guard.RecordFailure(s.ctx, "10.0.0.1")
		}()
	}
	wg.Wait()

	attempt, err := s.guard.Attempts(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.Equal(50, attempt.Count)
}

func (s *LoginGuardSuite) TestStoreErrorsSurface() {
	guard := NewLoginGuard(failingStore[LoginAttempt]{}, s.clock, DefaultLoginGuardConfig())

	_, err := guard.CheckLocked(s.ctx, "10.0.0.1")
	s.Error(err)
	_, err = guard.RecordFailure(s.ctx, "10.0.0.1")
	s.Error(err)
	s.Error(guard.RecordSuccess(s.ctx, "10.0.0.1"))
}

type RateLimiterSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	store   *memory.Store[[]time.Time]
	limiter *RateLimiter
	ctx     context.Context
}

func TestRateLimiterSuite(t *testing.T) {
	suite.Run(t, new(RateLimiterSuite))
}

func (s *RateLimiterSuite) SetupTest() {
	s.clock = mocks.NewMockClock(testStart)
	s.store = memory.New[[]time.Time]()
	s.limiter = NewRateLimiter(s.store, s.clock, DefaultRateLimiterConfig())
	s.ctx = context.Background()
}

func (s *RateLimiterSuite) TestHundredRequestsAllowed() {
	for i := 0; i < 100; i++ {
		limited, err := s.limiter.IsLimited(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.False(limited, "request %d", i+1)
	}

	limited, err := s.limiter.IsLimited(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(limited)
}

func (s *RateLimiterSuite) TestRejectedRequestsAreNotRecorded() {
	for i := 0; i < 100; i++ {
		_, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	}
	for i := 0; i < 10; i++ {
		limited, _ := s.limiter.IsLimited(s.ctx, "10.0.0.1")
		s.True(limited)
	}

	hits, _, _ := s.store.Get(s.ctx, "10.0.0.1")
	s.Len(hits, 100)
}

func (s *RateLimiterSuite) TestOldestRequestAgesOut() {
	_, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	s.clock.Advance(time.Second)
	for i := 0; i < 99; i++ {
		_, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	}

	limited, _ := s.limiter.IsLimited(s.ctx, "10.0.0.1")
	s.True(limited)

	// First request is exactly 60s old: no longer inside the window
	s.clock.Advance(59 * time.Second)
	limited, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	s.False(limited)

	limited, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	s.True(limited)
}

func (s *RateLimiterSuite) TestAddressesAreIndependent() {
	for i := 0; i < 100; i++ {
		_, _ = s.limiter.IsLimited(s.ctx, "10.0.0.1")
	}

	limited, _ := s.limiter.IsLimited(s.ctx, "10.0.0.2")
	s.False(limited)
}

func (s *RateLimiterSuite) TestConcurrentRequestsNeverExceedLimit() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limited, err := s.limiter.IsLimited(s.ctx, "10.0.0.1")
			if err == nil && !limited {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(100, allowed)
}

func (s *RateLimiterSuite) TestPruneRemovesStaleWindows() {
	for i := 0; i < 20; i++ {
		_, _ = s.limiter.IsLimited(s.ctx, fmt.Sprintf("10.0.0.%d", i))
	}
	s.Equal(20, s.store.Len())

	s.clock.Advance(30 * time.Second)
	_, _ = s.limiter.IsLimited(s.ctx, "10.0.0.0")

	s.clock.Advance(31 * time.Second)
	removed, err := s.limiter.Prune(s.ctx)
	s.Require().NoError(err)
	s.Equal(19, removed)
	s.Equal(1, s.store.Len())

	hits, ok, _ := s.store.Get(s.ctx, "10.0.0.0")
	s.True(ok)
	s.Len(hits, 2, "prune leaves live windows untouched")
}

func (s *RateLimiterSuite) TestStoreErrorsSurface() {
	limiter := NewRateLimiter(failingStore[[]time.Time]{}, s.clock, DefaultRateLimiterConfig())

	limited, err := limiter.IsLimited(s.ctx, "10.0.0.1")
	s.Error(err)
	s.False(limited)

	_, err = limiter.Prune(s.ctx)
	s.Error(err)
}

type failingStore[V any] struct{}

var errStoreDown = errors.New("store down")

func (failingStore[V]) Get(context.Context, string) (V, bool, error) {
	var v V
	return v, false, errStoreDown
}

func (failingStore[V]) Put(context.Context, string, V) error { return errStoreDown }

func (failingStore[V]) Evict(context.Context, string) error { return errStoreDown }

func (failingStore[V]) Keys(context.Context) ([]string, error) { return nil, errStoreDown }
