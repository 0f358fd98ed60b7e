package observability

import (
	"context"
	"slices"
)

// MultiObserver forwards each event to every observer in order.
type MultiObserver []Observer

// NewMultiObserver drops nil entries, so optional observers such as a
// metrics sink can be passed whether or not they were configured.
func NewMultiObserver(observers ...Observer) MultiObserver {
	return slices.DeleteFunc(slices.Clone(observers), func(o Observer) bool {
		return o == nil
	})
}

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}
