package containers

import "fmt"

// ArenaID addresses one slot of an Arena. The generation guards against a
// stale id reaching a slot that has since been reused.
type ArenaID struct {
	Index      uint32
	Generation uint32
}

// InvalidArenaID never resolves to a live slot.
var InvalidArenaID = ArenaID{Index: ^uint32(0), Generation: ^uint32(0)}

func (id ArenaID) String() string {
	return fmt.Sprintf("%d@%d", id.Index, id.Generation)
}

type arenaSlot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena owns values addressed by generational ids. Free slots are reused
// first, new slots are appended only when none is available.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
	count int
}

func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]arenaSlot[T], 0, capacity),
	}
}

// Insert stores value and returns the id that addresses it.
func (a *Arena[T]) Insert(value T) ArenaID {
	a.count++
	// Existing free spot. Take it.
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = value
		s.occupied = true
		return ArenaID{Index: idx, Generation: s.generation}
	}
	// If here, no existing free slots, push one.
	a.slots = append(a.slots, arenaSlot[T]{value: value, occupied: true})
	return ArenaID{Index: uint32(len(a.slots) - 1)}
}

// Get resolves id. The boolean is false for freed or stale ids.
func (a *Arena[T]) Get(id ArenaID) (T, bool) {
	var zero T
	if int(id.Index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[id.Index]
	if !s.occupied || s.generation != id.Generation {
		return zero, false
	}
	return s.value, true
}

// Remove frees the slot addressed by id and returns its value.
func (a *Arena[T]) Remove(id ArenaID) (T, bool) {
	value, ok := a.Get(id)
	if !ok {
		return value, false
	}
	var zero T
	s := &a.slots[id.Index]
	s.value = zero
	s.occupied = false
	s.generation++
	a.free = append(a.free, id.Index)
	a.count--
	return value, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.count
}

// Each calls fn for every live value until fn returns false.
func (a *Arena[T]) Each(fn func(id ArenaID, value T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		if !fn(ArenaID{Index: uint32(i), Generation: s.generation}, s.value) {
			return
		}
	}
}
