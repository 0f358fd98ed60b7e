package pubsub_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/kernelhub/pubsub"
)

func collect[T any](t *testing.T, sub *pubsub.Subscription[T]) []T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []T
	for v := range sub.All(ctx) {
		got = append(got, v)
	}
	if ctx.Err() != nil {
		t.Fatalf("subscription did not end before timeout, got %v", got)
	}
	return got
}

func TestPubSub_DeliversInOrderThenEnds(t *testing.T) {
	p := pubsub.New[int]()
	sub1 := p.Subscribe()
	sub2 := p.Subscribe()

	for i := 1; i <= 5; i++ {
		if err := p.Publish(i); err != nil {
			t.Fatalf("Publish(%d) error = %v", i, err)
		}
	}
	p.Stop()

	want := []int{1, 2, 3, 4, 5}
	for i, sub := range []*pubsub.Subscription[int]{sub1, sub2} {
		if got := collect(t, sub); !slices.Equal(got, want) {
			t.Errorf("subscriber %d got %v, want %v", i, got, want)
		}
	}
}

func TestPubSub_LateSubscriberSkipsCachedValue(t *testing.T) {
	p := pubsub.New[string]()
	if err := p.Publish("first"); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	sub := p.Subscribe()

	if err := p.Publish("second"); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	last, err := p.Last()
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if last != "second" {
		t.Errorf("Last() = %q, want %q", last, "second")
	}

	p.Stop()

	got := collect(t, sub)
	if !slices.Equal(got, []string{"second"}) {
		t.Errorf("late subscriber got %v, want [second]", got)
	}
}

func TestPubSub_LastWithoutValue(t *testing.T) {
	p := pubsub.New[int]()

	_, err := p.Last()
	if !errors.Is(err, pubsub.ErrNoValue) {
		t.Errorf("Last() error = %v, want %v", err, pubsub.ErrNoValue)
	}
}

func TestPubSub_NewWithLast(t *testing.T) {
	p := pubsub.NewWithLast("starting")
	sub := p.Subscribe()

	last, err := p.Last()
	if err != nil {
		t.Fatalf("Last() error = %v", err)
	}
	if last != "starting" {
		t.Errorf("Last() = %q, want %q", last, "starting")
	}

	p.Stop()
	if got := collect(t, sub); len(got) != 0 {
		t.Errorf("seeded value was delivered to subscriber: %v", got)
	}
}

func TestPubSub_PublishAfterStop(t *testing.T) {
	p := pubsub.New[int]()
	p.Stop()

	if err := p.Publish(1); !errors.Is(err, pubsub.ErrStopped) {
		t.Errorf("Publish() error = %v, want %v", err, pubsub.ErrStopped)
	}
	if !p.Stopped() {
		t.Error("Stopped() = false, want true")
	}
}

func TestPubSub_StopTwice(t *testing.T) {
	p := pubsub.New[int]()
	sub := p.Subscribe()
	if err := p.Publish(7); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	p.Stop()
	p.Stop()

	if got := collect(t, sub); !slices.Equal(got, []int{7}) {
		t.Errorf("got %v, want [7]", got)
	}
}

func TestPubSub_SubscribeAfterStop(t *testing.T) {
	p := pubsub.New[int]()
	p.Stop()

	sub := p.Subscribe()

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription on stopped pubsub is not done")
	}

	v, ok, err := sub.Next(context.Background())
	if err != nil || ok {
		t.Errorf("Next() = (%v, %v, %v), want (0, false, nil)", v, ok, err)
	}
	if p.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", p.Subscribers())
	}
}

func TestSubscription_EarlyBreakUnregisters(t *testing.T) {
	p := pubsub.New[int]()
	sub := p.Subscribe()

	for i := 0; i < 3; i++ {
		if err := p.Publish(i); err != nil {
			t.Fatalf("Publish error = %v", err)
		}
	}

	for v := range sub.All(context.Background()) {
		if v == 1 {
			break
		}
	}

	if n := p.Subscribers(); n != 0 {
		t.Errorf("Subscribers() after break = %d, want 0", n)
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	p := pubsub.New[int]()
	keep := p.Subscribe()
	sub := p.Subscribe()

	sub.Close()
	sub.Close()

	if n := p.Subscribers(); n != 1 {
		t.Errorf("Subscribers() = %d, want 1", n)
	}

	if err := p.Publish(1); err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	if keep.Pending() != 1 {
		t.Errorf("remaining subscriber Pending() = %d, want 1", keep.Pending())
	}
	if sub.Pending() != 0 {
		t.Errorf("closed subscriber Pending() = %d, want 0", sub.Pending())
	}
}

func TestSubscription_NextCancelled(t *testing.T) {
	p := pubsub.New[int]()
	sub := p.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := sub.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestSubscription_BlockingConsumer(t *testing.T) {
	p := pubsub.New[int]()
	sub := p.Subscribe()

	var (
		wg  sync.WaitGroup
		got []int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := range sub.All(context.Background()) {
			got = append(got, v)
		}
	}()

	for i := 0; i < 100; i++ {
		if err := p.Publish(i); err != nil {
			t.Fatalf("Publish error = %v", err)
		}
	}
	p.Stop()
	wg.Wait()

	if len(got) != 100 {
		t.Fatalf("received %d values, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}
