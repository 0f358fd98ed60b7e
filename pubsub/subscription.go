package pubsub

import (
	"context"
	"iter"
	"sync"
)

// Subscription is a single consumer's view of a PubSub. Values are delivered
// in publish order through an unbounded queue.
type Subscription[T any] struct {
	owner *PubSub[T]
	queue *queue[T]
	once  sync.Once
}

// Next blocks until the next value is available. ok is false once the stream
// has ended and every queued value was consumed. A cancelled ctx returns its
// error without ending the subscription.
func (s *Subscription[T]) Next(ctx context.Context) (value T, ok bool, err error) {
	return s.queue.pop(ctx)
}

// All returns a single-pass sequence over the subscription. The subscription
// is closed when the range loop exits, whether the stream ended, ctx was
// cancelled, or the caller stopped iterating early.
func (s *Subscription[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		defer s.Close()
		for {
			value, ok, err := s.queue.pop(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// Done is closed once the stream has ended, either by Stop or Close.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.queue.done
}

// Pending returns the number of values queued but not yet consumed.
func (s *Subscription[T]) Pending() int {
	return s.queue.len()
}

// Close unregisters the subscription and discards undelivered values. Safe
// to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.owner.remove(s)
		s.queue.drop()
	})
}
