package async_test

import (
	"context"
	"testing"
	"time"

	"github.com/bilusteknoloji/pvsolve/internal/async"
)

func TestBuildLocksSerializesSameFingerprint(t *testing.T) {
	locks := async.NewBuildLocks()

	release1, err := locks.Acquire(context.Background(), "fp-a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})

	go func() {
		release2, err := locks.Acquire(context.Background(), "fp-a")
		if err != nil {
			t.Errorf("second Acquire: %v", err)

			return
		}

		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire returned before the first release, want it blocked")
	case <-time.After(50 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestBuildLocksDistinctFingerprintsDontBlock(t *testing.T) {
	locks := async.NewBuildLocks()

	releaseA, err := locks.Acquire(context.Background(), "fp-a")
	if err != nil {
		t.Fatalf("Acquire fp-a: %v", err)
	}
	defer releaseA()

	releaseB, err := locks.Acquire(context.Background(), "fp-b")
	if err != nil {
		t.Fatalf("Acquire fp-b for a distinct fingerprint should not block: %v", err)
	}
	defer releaseB()
}

func TestBuildLocksAcquireRespectsContextCancellation(t *testing.T) {
	locks := async.NewBuildLocks()

	release, err := locks.Acquire(context.Background(), "fp-a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := locks.Acquire(ctx, "fp-a"); err == nil {
		t.Fatal("Acquire should fail once ctx deadline passes while the lock stays held")
	}
}

func TestBuildLocksReacquireAfterRelease(t *testing.T) {
	locks := async.NewBuildLocks()

	release, err := locks.Acquire(context.Background(), "fp-a")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	release()

	release2, err := locks.Acquire(context.Background(), "fp-a")
	if err != nil {
		t.Fatalf("reacquiring a released fingerprint should succeed: %v", err)
	}

	release2()
}
