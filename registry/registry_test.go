package registry_test

import (
	"slices"
	"testing"

	"github.com/tailored-agentic-units/kernelhub/registry"
)

type recorder struct {
	events []string
}

func (r *recorder) inserted(key string, value int) {
	r.events = append(r.events, "insert:"+key)
}

func (r *recorder) removed(key string) {
	r.events = append(r.events, "remove:"+key)
}

func TestRegistry_InsertFiresCallback(t *testing.T) {
	rec := &recorder{}
	reg := registry.New(rec.inserted, rec.removed)

	reg.Insert("a", 1)
	reg.Insert("a", 2)

	want := []string{"insert:a", "insert:a"}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}

	got, ok := reg.Get("a")
	if !ok || got != 2 {
		t.Errorf("Get(a) = (%d, %v), want (2, true)", got, ok)
	}
}

func TestRegistry_RemoveFiresCallback(t *testing.T) {
	rec := &recorder{}
	reg := registry.New(rec.inserted, rec.removed)

	reg.Insert("a", 1)

	if !reg.Remove("a") {
		t.Fatal("Remove(a) = false, want true")
	}
	if reg.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	want := []string{"insert:a", "remove:a"}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
	if reg.Has("a") {
		t.Error("Has(a) = true after removal")
	}
}

func TestRegistry_Pop(t *testing.T) {
	rec := &recorder{}
	reg := registry.New(rec.inserted, rec.removed)
	reg.Insert("b", 5)

	value, ok := reg.Pop("b")
	if !ok || value != 5 {
		t.Errorf("Pop(b) = (%d, %v), want (5, true)", value, ok)
	}
	if rec.events[len(rec.events)-1] != "remove:b" {
		t.Errorf("last event = %q, want remove:b", rec.events[len(rec.events)-1])
	}
}

func TestRegistry_CallbackSeesMutation(t *testing.T) {
	var reg *registry.Registry[string, int]
	var sawInserted, sawRemoved bool

	reg = registry.New(
		func(key string, _ int) { sawInserted = reg.Has(key) },
		func(key string) { sawRemoved = !reg.Has(key) },
	)

	reg.Insert("k", 1)
	reg.Remove("k")

	if !sawInserted {
		t.Error("OnInserted ran before the entry was visible")
	}
	if !sawRemoved {
		t.Error("OnRemoved ran while the entry was still visible")
	}
}

func TestRegistry_NilCallbacks(t *testing.T) {
	reg := registry.New[string, int](nil, nil)

	reg.Insert("x", 1)
	reg.Insert("y", 2)

	keys := reg.Keys()
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"x", "y"}) {
		t.Errorf("Keys() = %v, want [x y]", keys)
	}

	count := 0
	for range reg.All() {
		count++
	}
	if count != 2 || reg.Len() != 2 {
		t.Errorf("iterated %d entries, Len() = %d, want 2", count, reg.Len())
	}
}
