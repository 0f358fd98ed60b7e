package pubsub

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO with a single blocking consumer.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	ended  bool
	signal chan struct{}
	done   chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (q *queue[T]) push(item T) {
	q.mu.Lock()
	if q.ended {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.notify()
}

// end marks the stream finished. Items already queued are still delivered.
func (q *queue[T]) end() {
	q.mu.Lock()
	if q.ended {
		q.mu.Unlock()
		return
	}
	q.ended = true
	close(q.done)
	q.mu.Unlock()

	q.notify()
}

// drop ends the stream and discards anything not yet consumed.
func (q *queue[T]) drop() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.end()
}

func (q *queue[T]) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue[T]) pop(ctx context.Context) (T, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true, nil
		}
		if q.ended {
			q.mu.Unlock()
			var zero T
			return zero, false, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
