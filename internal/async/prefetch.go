package async

import (
	"context"
	"log/slog"
	"sync"
)

// cell is a once-computed slot in an InMemoryIndex.
type cell struct {
	done chan struct{}
	val  any
	err  error
}

// InMemoryIndex is the concurrent map of once-cells prefetch results
// land in, so that when the solver later awaits the same key it finds
// the answer already present. Provider responses may arrive in any
// order; a cell only resolves once, so whichever of a prefetch or a
// direct solver await gets there first computes the value and the
// other observes it.
type InMemoryIndex struct {
	mu    sync.Mutex
	cells map[string]*cell
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{cells: map[string]*cell{}}
}

// GetOrCompute returns key's cached value, computing it with fn if this
// is the first caller for key. Concurrent callers for the same key block
// on the first caller's fn rather than each running their own.
func (idx *InMemoryIndex) GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	idx.mu.Lock()

	c, existing := idx.cells[key]
	if !existing {
		c = &cell{done: make(chan struct{})}
		idx.cells[key] = c
	}

	idx.mu.Unlock()

	if !existing {
		c.val, c.err = fn(ctx)
		close(c.done)

		return c.val, c.err
	}

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns key's value without computing it, for the solver's
// await-after-prefetch path: if a speculative prefetch already finished,
// Peek finds it without blocking.
func (idx *InMemoryIndex) Peek(key string) (any, error, bool) {
	idx.mu.Lock()
	c, ok := idx.cells[key]
	idx.mu.Unlock()

	if !ok {
		return nil, nil, false
	}

	select {
	case <-c.done:
		return c.val, c.err, true
	default:
		return nil, nil, false
	}
}

// Prefetcher submits speculative metadata fetches for a chosen version's
// dependencies before they become PubGrub decisions. It is
// best-effort: a fetch already in flight when CancelAll is called (on
// PubGrub backtrack) is cancelled via context, but any result it already
// wrote to the index stays there — prefetch must never influence which
// graph is produced, so a stale-but-correct cached answer is harmless,
// it only changes how fast a later await resolves.
type Prefetcher struct {
	pool   *Pool
	index  *InMemoryIndex
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewPrefetcher creates a Prefetcher backed by pool and index.
func NewPrefetcher(pool *Pool, index *InMemoryIndex, logger *slog.Logger) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Prefetcher{pool: pool, index: index, logger: logger, cancels: map[string]context.CancelFunc{}}
}

// Submit speculatively computes fn for key on the pool, unless key is
// already cached or in flight.
func (p *Prefetcher) Submit(key string, fn func(ctx context.Context) (any, error)) {
	if _, _, ok := p.index.Peek(key); ok {
		return
	}

	ctx, cancel := context.WithCancel(p.pool.Context())

	p.mu.Lock()
	if _, inFlight := p.cancels[key]; inFlight {
		p.mu.Unlock()
		cancel()

		return
	}

	p.cancels[key] = cancel
	p.mu.Unlock()

	p.pool.Go(func(poolCtx context.Context) error {
		defer func() {
			p.mu.Lock()
			delete(p.cancels, key)
			p.mu.Unlock()
		}()

		_, err := p.index.GetOrCompute(ctx, key, fn)
		if err != nil {
			p.logger.Debug("speculative prefetch failed", slog.String("key", key), slog.String("error", err.Error()))
		}

		return nil // prefetch failures never fail the pool
	})
}

// CancelAll cancels every in-flight prefetch, called on PubGrub
// backtrack.
func (p *Prefetcher) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, cancel := range p.cancels {
		cancel()
		delete(p.cancels, key)
	}
}
