package tree

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// renderLock serializes structural renders. Waiters queue in FIFO order and
// give up when their context ends.
type renderLock struct {
	sem *semaphore.Weighted
}

func newRenderLock() *renderLock {
	return &renderLock{sem: semaphore.NewWeighted(1)}
}

func (l *renderLock) acquire(ctx context.Context) (release func(), err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { l.sem.Release(1) }) }, nil
}

// resolveHandle is one outstanding item resolution. Cancelling it makes a
// late completion detectable through ctx.Err.
type resolveHandle struct {
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// emitter is a list of subscribers for one event kind.
type emitter[E any] struct {
	mu       sync.Mutex
	next     int
	handlers []subscriber[E]
}

type subscriber[E any] struct {
	id int
	fn func(E)
}

func (e *emitter[E]) subscribe(fn func(E)) func() {
	e.mu.Lock()
	e.next++
	id := e.next
	e.handlers = append(e.handlers, subscriber[E]{id: id, fn: fn})
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.handlers {
			if s.id == id {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

func (e *emitter[E]) emit(ev E) {
	e.mu.Lock()
	handlers := make([]subscriber[E], len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()
	for _, s := range handlers {
		s.fn(ev)
	}
}

func (e *emitter[E]) clear() {
	e.mu.Lock()
	e.handlers = nil
	e.mu.Unlock()
}
