package observability

import (
	"context"
	"sync"
)

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// CaptureObserver records events in memory. Used by tests across packages to
// assert on what a component emitted.
type CaptureObserver struct {
	mu     sync.Mutex
	events []Event
}

func (c *CaptureObserver) OnEvent(_ context.Context, event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns a copy of everything recorded so far.
func (c *CaptureObserver) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Count returns how many recorded events have the given type.
func (c *CaptureObserver) Count(eventType EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
