package async

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is the bounded worker pool CPU-heavy parsing/archiving is
// offloaded to, a thin wrapper over errgroup.Group with
// SetLimit so callers get a single cancellation-propagating handle
// instead of juggling a semaphore by hand.
type Pool struct {
	group *errgroup.Group
	ctx   context.Context
}

// NewPool creates a Pool bounded to limit concurrent goroutines. A
// limit <= 0 defaults to runtime.GOMAXPROCS(0).
func NewPool(ctx context.Context, limit int) *Pool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	return &Pool{group: g, ctx: gctx}
}

// Go submits fn to run on the pool; it blocks only if the pool is
// already at its concurrency limit.
func (p *Pool) Go(fn func(ctx context.Context) error) {
	p.group.Go(func() error {
		return fn(p.ctx)
	})
}

// Wait blocks until every submitted task has completed, returning the
// first non-nil error (if any); per errgroup.Group, that error also
// cancels the Pool's context for tasks still running.
func (p *Pool) Wait() error {
	return p.group.Wait()
}

// Context returns the pool's derived context, cancelled once the first
// submitted task returns a non-nil error or the parent context is
// cancelled.
func (p *Pool) Context() context.Context {
	return p.ctx
}
