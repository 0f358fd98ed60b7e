package future_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tailored-agentic-units/kernelhub/future"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := future.New[string]()

	if !f.Resolve("first") {
		t.Fatal("first Resolve() = false, want true")
	}
	if f.Resolve("second") {
		t.Error("second Resolve() = true, want false")
	}
	if f.Fail(errors.New("late")) {
		t.Error("Fail() after Resolve = true, want false")
	}

	got, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if got != "first" {
		t.Errorf("Await() = %q, want %q", got, "first")
	}
}

func TestFuture_Fail(t *testing.T) {
	f := future.New[int]()
	sentinel := errors.New("gone")

	f.Fail(sentinel)

	if !f.Settled() {
		t.Error("Settled() = false, want true")
	}
	if _, err := f.Await(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("Await() error = %v, want %v", err, sentinel)
	}
}

func TestFuture_AwaitBlocksUntilResolved(t *testing.T) {
	f := future.New[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Resolve(42)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := f.Await(ctx)
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Await() = %d, want 42", got)
	}
}

func TestFuture_AwaitCancelled(t *testing.T) {
	f := future.New[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want %v", err, context.Canceled)
	}
	if f.Settled() {
		t.Error("Settled() = true after cancelled Await, want false")
	}
}
