package pubsub

import (
	"slices"
	"sync"
)

// PubSub broadcasts values of type T to every active Subscription and caches
// the most recently published value. The zero value is not usable; create
// instances with New or NewWithLast.
type PubSub[T any] struct {
	mu          sync.Mutex
	stopped     bool
	subscribers []*Subscription[T]
	last        T
	hasLast     bool
}

// New creates a PubSub with no cached value.
func New[T any]() *PubSub[T] {
	return &PubSub[T]{}
}

// NewWithLast creates a PubSub whose cached value is already set to last.
// Subscribers are not sent the seeded value; it is only visible through Last.
func NewWithLast[T any](last T) *PubSub[T] {
	return &PubSub[T]{last: last, hasLast: true}
}

// Publish caches value and enqueues it for every current subscriber without
// blocking. Returns ErrStopped if Stop has already been called.
func (p *PubSub[T]) Publish(value T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}

	p.last = value
	p.hasLast = true
	for _, sub := range p.subscribers {
		sub.queue.push(value)
	}
	return nil
}

// Subscribe registers a new subscription that receives every value published
// after this call. A subscription created on a stopped PubSub ends
// immediately without yielding anything.
func (p *PubSub[T]) Subscribe() *Subscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription[T]{
		owner: p,
		queue: newQueue[T](),
	}

	if p.stopped {
		sub.queue.end()
		return sub
	}

	p.subscribers = append(p.subscribers, sub)
	return sub
}

// Stop ends every active subscription and rejects further publishes. Values
// queued before Stop are still delivered. Calling Stop again has no effect.
func (p *PubSub[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	p.stopped = true
	for _, sub := range p.subscribers {
		sub.queue.end()
	}
}

// Stopped reports whether Stop has been called.
func (p *PubSub[T]) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Last returns the most recently published (or seeded) value, or ErrNoValue.
func (p *PubSub[T]) Last() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasLast {
		var zero T
		return zero, ErrNoValue
	}
	return p.last, nil
}

// Subscribers returns the number of registered subscriptions.
func (p *PubSub[T]) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

func (p *PubSub[T]) remove(sub *Subscription[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.Index(p.subscribers, sub); i >= 0 {
		p.subscribers = slices.Delete(p.subscribers, i, i+1)
	}
}
