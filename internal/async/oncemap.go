// Package async is the concurrency fabric: the
// once-map that collapses concurrent fetches for the same key, the
// bounded worker pool for CPU-heavy parsing, and speculative prefetch
// with best-effort cancellation. Built on golang.org/x/sync's
// singleflight and errgroup, the same concurrency primitives the pack
// uses for this domain.
package async

import (
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// OnceMap collapses concurrent requests for the same key into one run of
// the work; callers that arrive while it is in flight await the first's
// result. Results are not kept once the call returns, so a later request
// for the key runs the work again.
type OnceMap struct {
	group  singleflight.Group
	logger *slog.Logger
}

// NewOnceMap creates an OnceMap. logger may be nil; slog.Default() is
// used in that case.
func NewOnceMap(logger *slog.Logger) *OnceMap {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnceMap{logger: logger}
}

// Do runs fn for key if no call for key is already in flight, otherwise
// blocks until the in-flight call completes and returns its result.
// Shared == true tells the caller it was a follower, not the leader.
func (m *OnceMap) Do(key string, fn func() (any, error)) (v any, shared bool, err error) {
	v, err, shared = m.group.Do(key, fn)

	if shared {
		m.logger.Debug("once-map: joined in-flight call", slog.String("key", key))
	}

	return v, shared, err
}

// Forget drops key's in-flight call, so a subsequent Do call runs fn
// itself instead of joining the call already in flight.
func (m *OnceMap) Forget(key string) {
	m.group.Forget(key)
}
