// Package future provides a single-assignment value that any number of
// goroutines can wait on.
package future

import (
	"context"
	"sync"
)

// Future holds a value or error that is set at most once. Later calls to
// Resolve or Fail are ignored, so duplicate replies are harmless.
type Future[T any] struct {
	mu    sync.Mutex
	done  chan struct{}
	value T
	err   error
	set   bool
}

// New creates an unresolved Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve sets the value if the Future is still pending. Reports whether
// this call settled the Future.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Fail settles the Future with err if it is still pending.
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(value T, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.set {
		return false
	}
	f.value = value
	f.err = err
	f.set = true
	close(f.done)
	return true
}

// Await blocks until the Future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the Future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether Resolve or Fail has taken effect.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}
