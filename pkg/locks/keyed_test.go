package locks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAcquireReleaseCycle(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "order-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 tracked key, got %d", l.Len())
	}
	release()
	if l.Len() != 0 {
		t.Fatalf("expected entry cleanup after release, got %d", l.Len())
	}

	release, err = l.Acquire(ctx, "order-1", time.Second)
	if err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	release()
}

func TestAcquireTimesOutWhenHeld(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "order-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	_, err = l.Acquire(ctx, "order-1", 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	r1, err := l.Acquire(ctx, "order-1", time.Second)
	if err != nil {
		t.Fatalf("acquire order-1: %v", err)
	}
	defer r1()

	r2, err := l.Acquire(ctx, "order-2", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("order-2 should not contend with order-1: %v", err)
	}
	r2()
}

func TestConcurrentHoldersAreSerialized(t *testing.T) {
	l := NewKeyedLocker()
	ctx := context.Background()

	const workers = 8
	var counter, max int
	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "order-1", 5*time.Second)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			counter--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if max != 1 {
		t.Fatalf("expected at most one holder at a time, saw %d", max)
	}
	if l.Len() != 0 {
		t.Fatalf("expected all entries cleaned up, got %d", l.Len())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewKeyedLocker()
	release, err := l.Acquire(context.Background(), "order-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	release()
	release()
	if l.Len() != 0 {
		t.Fatalf("double release corrupted entry tracking, len=%d", l.Len())
	}
}

func TestCanceledContextWins(t *testing.T) {
	l := NewKeyedLocker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hold, err := l.Acquire(context.Background(), "order-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer hold()

	if _, err := l.Acquire(ctx, "order-1", time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
