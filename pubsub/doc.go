// Package pubsub provides a one-to-many broadcast primitive with last-value
// caching and explicit termination.
//
// A PubSub delivers every published value to each subscription registered at
// the time of the publish. Subscriptions own an unbounded queue, so a slow
// consumer never blocks the publisher:
//
//	states := pubsub.NewWithLast("starting")
//
//	sub := states.Subscribe()
//	for state := range sub.All(ctx) {
//	    fmt.Println(state)
//	}
//
// The most recent value is always available through Last, independent of
// when a subscription was created:
//
//	current, err := states.Last()
//
// Stop ends every active subscription once its queued values drain. Any
// further Publish returns ErrStopped, and subscriptions created on a stopped
// PubSub end immediately.
//
// # Subscription Lifetime
//
// A subscription unregisters exactly once, either through Close or when a
// range over All exits. Callers using Next directly should defer Close:
//
//	sub := states.Subscribe()
//	defer sub.Close()
//
//	for {
//	    state, ok, err := sub.Next(ctx)
//	    if err != nil || !ok {
//	        return
//	    }
//	    handle(state)
//	}
package pubsub
