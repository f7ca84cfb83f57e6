package async_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bilusteknoloji/pvsolve/internal/async"
)

func TestOnceMapCollapsesConcurrentCalls(t *testing.T) {
	m := async.NewOnceMap(nil)

	var calls int64

	const callers = 20

	release := make(chan struct{})

	var wg, started sync.WaitGroup

	wg.Add(callers)
	started.Add(callers)

	results := make([]any, callers)

	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()

			started.Done()

			v, _, err := m.Do("widget", func() (any, error) {
				atomic.AddInt64(&calls, 1)
				<-release // held open so every caller joins this one in-flight call

				return "resolved", nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}

			results[i] = v
		}(i)
	}

	started.Wait() // best-effort: give every goroutine a chance to reach Do before unblocking the leader
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("underlying fn called %d times, want exactly 1", got)
	}

	for i, v := range results {
		if v != "resolved" {
			t.Errorf("results[%d] = %v, want \"resolved\"", i, v)
		}
	}
}

func TestOnceMapForgetAllowsRefetch(t *testing.T) {
	m := async.NewOnceMap(nil)

	var calls int64

	run := func() {
		_, _, err := m.Do("widget", func() (any, error) {
			atomic.AddInt64(&calls, 1)

			return nil, nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	}

	run()
	m.Forget("widget")
	run()

	if got := atomic.LoadInt64(&calls); got != 2 {
		t.Errorf("calls after Forget = %d, want 2", got)
	}
}
