package syncstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/code-payments/eventflow/pkg/eventflow/remote"
)

// observable holds an immutable value that is replaced, never mutated, and
// fans each replacement out to watchers. Reads take no locks.
type observable[T any] struct {
	current atomic.Pointer[T]

	mu       sync.Mutex
	watchers map[chan T]struct{}
	closed   bool
	done     chan struct{}
}

func newObservable[T any](initial T) *observable[T] {
	o := &observable[T]{
		watchers: make(map[chan T]struct{}),
		done:     make(chan struct{}),
	}
	o.current.Store(&initial)
	return o
}

func (o *observable[T]) get() T {
	return *o.current.Load()
}

// publish replaces the current value and offers it to every watcher. A
// watcher that has not consumed the previous value only sees the newest one.
func (o *observable[T]) publish(value T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.current.Store(&value)
	for ch := range o.watchers {
		remote.Offer(ch, value)
	}
}

// watch returns a channel that first yields the current value, then every
// published value until ctx is done or the observable is closed
func (o *observable[T]) watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch
	}

	o.watchers[ch] = struct{}{}
	remote.Offer(ch, o.get())
	o.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			o.unwatch(ch)
		case <-o.done:
		}
	}()

	return ch
}

func (o *observable[T]) unwatch(ch chan T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.watchers[ch]; !ok {
		return
	}

	delete(o.watchers, ch)
	close(ch)
}

func (o *observable[T]) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.closed = true
	close(o.done)
	for ch := range o.watchers {
		delete(o.watchers, ch)
		close(ch)
	}
}
