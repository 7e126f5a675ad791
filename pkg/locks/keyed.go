// Package locks provides in-process mutual exclusion keyed by an
// arbitrary identifier, used to serialize writers on a single order.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrWaitTimeout is returned when the lock could not be acquired
// within the configured wait bound.
var ErrWaitTimeout = errors.New("locks: wait bound exceeded")

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyedLocker hands out one mutex per key. Entries are reference
// counted and removed once the last holder releases.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedLocker returns an empty locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*entry)}
}

// Acquire blocks until the key's lock is held, the wait bound elapses,
// or ctx is done. On success the returned release function must be
// called exactly once.
func (l *KeyedLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	acquireCtx := ctx
	var cancel context.CancelFunc
	if wait > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	if err := e.sem.Acquire(acquireCtx, 1); err != nil {
		l.put(key, e)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrWaitTimeout
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.sem.Release(1)
			l.put(key, e)
		})
	}
	return release, nil
}

func (l *KeyedLocker) put(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// Len reports the number of keys currently tracked.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
