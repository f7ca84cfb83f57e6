package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilusteknoloji/pvsolve/internal/async"
)

func TestInMemoryIndexGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	idx := async.NewInMemoryIndex()

	var calls int64

	run := func() (any, error) {
		return idx.GetOrCompute(context.Background(), "widget", func(ctx context.Context) (any, error) {
			atomic.AddInt64(&calls, 1)

			return "value", nil
		})
	}

	v1, err1 := run()
	v2, err2 := run()

	if err1 != nil || err2 != nil {
		t.Fatalf("GetOrCompute errors: %v, %v", err1, err2)
	}

	if v1 != "value" || v2 != "value" {
		t.Fatalf("GetOrCompute values = %v, %v, want \"value\" both times", v1, v2)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("fn called %d times, want 1 (second call should reuse the cached cell)", got)
	}
}

func TestInMemoryIndexPeekFindsCompletedCell(t *testing.T) {
	idx := async.NewInMemoryIndex()

	if _, _, ok := idx.Peek("widget"); ok {
		t.Fatal("Peek on an empty index should report ok=false")
	}

	if _, err := idx.GetOrCompute(context.Background(), "widget", func(ctx context.Context) (any, error) {
		return "value", nil
	}); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	v, err, ok := idx.Peek("widget")
	if !ok {
		t.Fatal("Peek should find the already-computed cell")
	}

	if err != nil || v != "value" {
		t.Errorf("Peek = %v, %v, want \"value\", nil", v, err)
	}
}

func TestInMemoryIndexGetOrComputeContextCancellation(t *testing.T) {
	idx := async.NewInMemoryIndex()

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = idx.GetOrCompute(context.Background(), "widget", func(ctx context.Context) (any, error) {
			close(started)
			<-release

			return "value", nil
		})
	}()

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.GetOrCompute(ctx, "widget", func(ctx context.Context) (any, error) {
		t.Fatal("fn must not run for the follower; the leader owns this key")

		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetOrCompute with a cancelled ctx = %v, want context.Canceled", err)
	}

	close(release)
}

func TestPrefetcherSubmitSkipsAlreadyCachedKey(t *testing.T) {
	pool := async.NewPool(context.Background(), 2)
	idx := async.NewInMemoryIndex()
	p := async.NewPrefetcher(pool, idx, nil)

	if _, err := idx.GetOrCompute(context.Background(), "widget", func(ctx context.Context) (any, error) {
		return "cached", nil
	}); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}

	var calls int64

	p.Submit("widget", func(ctx context.Context) (any, error) {
		atomic.AddInt64(&calls, 1)

		return "fresh", nil
	})

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := atomic.LoadInt64(&calls); got != 0 {
		t.Errorf("Submit ran fn %d times for an already-cached key, want 0", got)
	}
}

func TestPrefetcherCancelAllStopsInFlightFetches(t *testing.T) {
	pool := async.NewPool(context.Background(), 2)
	idx := async.NewInMemoryIndex()
	p := async.NewPrefetcher(pool, idx, nil)

	started := make(chan struct{})

	p.Submit("widget", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()

		return nil, ctx.Err()
	})

	<-started
	p.CancelAll()

	if err := pool.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	deadline := time.After(time.Second)

	for {
		if _, _, ok := idx.Peek("widget"); ok {
			break
		}

		select {
		case <-deadline:
			t.Fatal("cancelled prefetch never recorded its (cancelled) result in the index")
		default:
		}
	}
}
