package testutil

import (
	"context"
	"errors"

	"github.com/mcoot/ratinggame/internal/tracker"
)

// ErrTrackerDown is returned by every FailingTracker operation
var ErrTrackerDown = errors.New("tracker unavailable")

// FailingTracker is a tracker.Store whose backing is unreachable
type FailingTracker[V any] struct{}

var _ tracker.Store[int] = FailingTracker[int]{}

func (FailingTracker[V]) Get(context.Context, string) (V, bool, error) {
	var zero V
	return zero, false, ErrTrackerDown
}

func (FailingTracker[V]) Put(context.Context, string, V) error { return ErrTrackerDown }

func (FailingTracker[V]) Evict(context.Context, string) error { return ErrTrackerDown }

func (FailingTracker[V]) Keys(context.Context) ([]string, error) { return nil, ErrTrackerDown }
