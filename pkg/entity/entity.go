// Package entity provides generation-checked handles for simulation objects.
//
// Scripts, scheduled events and inventories never hold pointers to world
// objects. They hold a Handle, which resolves through an Arena and reports
// "absent" once the object behind it has been destroyed, even if its slot
// has since been reused.
package entity

import "fmt"

// Handle is an indirect reference to an entity stored in an Arena.
// The zero Handle never refers to a live entity.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h.Index == 0
}

// String returns a short printable form such as "obj#3.1".
func (h Handle) String() string {
	if h.IsZero() {
		return "obj#0"
	}
	return fmt.Sprintf("obj#%d.%d", h.Index, h.Gen)
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values addressed by generation-checked handles.
// Slot 0 is reserved so that the zero Handle is always invalid.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// NewArena creates an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 1, 64),
	}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	s.value = v
	s.live = true
	a.count++

	return Handle{Index: idx, Gen: s.gen}
}

// Get resolves h. It returns false for the zero handle, for handles whose
// slot has been removed, and for handles from an older generation.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if !a.Valid(h) {
		return zero, false
	}
	return a.slots[h.Index].value, true
}

// Valid reports whether h still refers to a live value.
func (a *Arena[T]) Valid(h Handle) bool {
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.Index]
	return s.live && s.gen == h.Gen
}

// Remove deletes the value behind h. Stale handles are ignored.
func (a *Arena[T]) Remove(h Handle) bool {
	if !a.Valid(h) {
		return false
	}
	var zero T
	s := &a.slots[h.Index]
	s.value = zero
	s.live = false
	a.free = append(a.free, h.Index)
	a.count--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}

// Each calls fn for every live value in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := 1; i < len(a.slots); i++ {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Gen: s.gen}, s.value) {
			return
		}
	}
}
