package interaction

import (
	"context"
	"sync"
	"time"
)

// Lock serialises bursts of input against multi-step reads of editor state.
//
// The input path calls Touch on every event, holding the lock shared until
// no event has arrived for the unlock delay. Readers that need a consistent
// view of several fields take it exclusively with Lock or Snapshot, which
// waits for the burst to settle and holds off the next one until released.
type Lock struct {
	mu        sync.Mutex
	delay     time.Duration
	shared    bool
	exclusive bool
	last      time.Time
	timer     *time.Timer
	changed   chan struct{}
}

// NewLock returns a Lock releasing shared holds after delay of idle input.
func NewLock(delay time.Duration) *Lock {
	return &Lock{delay: delay, changed: make(chan struct{})}
}

// SetDelay changes the unlock delay for subsequent bursts.
func (l *Lock) SetDelay(d time.Duration) {
	l.mu.Lock()
	l.delay = d
	l.mu.Unlock()
}

// Touch marks input activity, taking the shared hold if it is not held.
// It waits while an exclusive holder is reading.
func (l *Lock) Touch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.exclusive {
		ch := l.changed
		l.mu.Unlock()
		<-ch
		l.mu.Lock()
	}

	l.last = time.Now()
	if l.shared {
		return
	}
	l.shared = true
	if l.timer == nil {
		l.timer = time.AfterFunc(l.delay, l.expire)
	} else {
		l.timer.Reset(l.delay)
	}
	l.notify()
}

func (l *Lock) expire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.shared {
		return
	}
	if idle := time.Since(l.last); idle < l.delay {
		l.timer.Reset(l.delay - idle)
		return
	}
	l.shared = false
	l.notify()
}

// Busy reports whether an input burst currently holds the lock.
func (l *Lock) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shared
}

// Lock waits for input to settle and takes the lock exclusively.
func (l *Lock) Lock(ctx context.Context) error {
	l.mu.Lock()
	for l.shared || l.exclusive {
		ch := l.changed
		l.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
		l.mu.Lock()
	}
	l.exclusive = true
	l.mu.Unlock()
	return nil
}

// Unlock releases an exclusive hold taken with Lock.
func (l *Lock) Unlock() {
	l.mu.Lock()
	l.exclusive = false
	l.notify()
	l.mu.Unlock()
}

// Snapshot runs fn while holding the lock exclusively.
func (l *Lock) Snapshot(ctx context.Context, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// notify wakes all waiters. l.mu must be held.
func (l *Lock) notify() {
	close(l.changed)
	l.changed = make(chan struct{})
}
