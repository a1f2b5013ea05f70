package entity

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestHandle_Zero(t *testing.T) {
	var h Handle
	if !h.IsZero() {
		t.Error("zero handle should report IsZero")
	}
	if h.String() != "obj#0" {
		t.Errorf("String() = %q, want obj#0", h.String())
	}

	a := NewArena[string]()
	if _, ok := a.Get(h); ok {
		t.Error("zero handle must not resolve")
	}
}

func TestArena_InsertGetRemove(t *testing.T) {
	a := NewArena[string]()
	h1 := a.Insert("door")
	h2 := a.Insert("chest")

	if v, ok := a.Get(h1); !ok || v != "door" {
		t.Errorf("Get(h1) = %q, %v", v, ok)
	}
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}

	if !a.Remove(h1) {
		t.Fatal("Remove(h1) returned false")
	}
	if a.Remove(h1) {
		t.Error("second Remove(h1) should return false")
	}
	if _, ok := a.Get(h1); ok {
		t.Error("removed handle must not resolve")
	}

	// Slot reuse must not revive the old handle.
	h3 := a.Insert("critter")
	if h3.Index != h1.Index {
		t.Fatalf("expected slot reuse, got index %d want %d", h3.Index, h1.Index)
	}
	if h3.Gen == h1.Gen {
		t.Error("reused slot should have a new generation")
	}
	if _, ok := a.Get(h1); ok {
		t.Error("stale handle resolved after slot reuse")
	}
	if v, _ := a.Get(h3); v != "critter" {
		t.Errorf("Get(h3) = %q, want critter", v)
	}
	if v, _ := a.Get(h2); v != "chest" {
		t.Errorf("Get(h2) = %q, want chest", v)
	}
}

func TestArena_Each(t *testing.T) {
	a := NewArena[int]()
	a.Insert(1)
	h := a.Insert(2)
	a.Insert(3)
	a.Remove(h)

	var got []int
	a.Each(func(_ Handle, v int) bool {
		got = append(got, v)
		return true
	})
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Each visited %v, want [1 3]", got)
	}
}

func TestProperty_StaleHandlesNeverResolve(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("removed handles stay invalid across reuse", prop.ForAll(
		func(n int) bool {
			a := NewArena[int]()
			var removed []Handle
			for i := 0; i < n; i++ {
				h := a.Insert(i)
				if i%2 == 0 {
					a.Remove(h)
					removed = append(removed, h)
				}
			}
			for i := 0; i < n; i++ {
				a.Insert(i)
			}
			for _, h := range removed {
				if a.Valid(h) {
					return false
				}
			}
			return a.Len() == n+n/2
		},
		gen.IntRange(0, 200),
	))

	properties.TestingRun(t)
}
