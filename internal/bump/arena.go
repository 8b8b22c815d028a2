package bump

import (
	"fmt"
	"sync/atomic"
)

var arenaIDs atomic.Uint32

// Ref is a handle to one value in an Arena. The zero Ref is invalid.
type Ref struct {
	arena uint32
	gen   uint32
	index uint32
}

// Valid reports whether r was produced by an Arena.
func (r Ref) Valid() bool { return r.gen != 0 }

func (r Ref) String() string {
	if !r.Valid() {
		return "ref(nil)"
	}
	return fmt.Sprintf("ref(%d@%d#%d)", r.index, r.gen, r.arena)
}

// Span is a handle to a contiguous run of values in an Arena.
type Span struct {
	arena uint32
	gen   uint32
	start uint32
	n     uint32
}

// Len returns the number of values in the span.
func (s Span) Len() int { return int(s.n) }

// StaleRefError is the panic value raised when a handle outlives the arena
// generation that issued it or is used against the wrong arena.
type StaleRefError struct {
	Arena      uint32
	Generation uint32
	Current    uint32
	Foreign    bool
}

func (e *StaleRefError) Error() string {
	if e.Foreign {
		return fmt.Sprintf("bump: handle from arena %d used against arena %d", e.Arena, e.Current)
	}
	return fmt.Sprintf("bump: stale handle from generation %d, arena is at generation %d", e.Generation, e.Current)
}

// Arena is an append-only allocator for values of type T.
//
// An Arena is not safe for concurrent use.
type Arena[T any] struct {
	id    uint32
	gen   uint32
	items []T
}

// NewArena creates an arena with room for capacity values before growing.
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		id:    arenaIDs.Add(1),
		gen:   1,
		items: make([]T, 0, capacity),
	}
}

// Alloc appends v and returns its handle.
func (a *Arena[T]) Alloc(v T) Ref {
	a.items = append(a.items, v)
	return Ref{arena: a.id, gen: a.gen, index: uint32(len(a.items) - 1)}
}

// AllocSlice copies vs into the arena and returns a span over the copies.
func (a *Arena[T]) AllocSlice(vs []T) Span {
	start := len(a.items)
	a.items = append(a.items, vs...)
	return Span{arena: a.id, gen: a.gen, start: uint32(start), n: uint32(len(vs))}
}

// Get returns a pointer to the value behind r. The pointer must not be kept
// past the next Reset.
func (a *Arena[T]) Get(r Ref) *T {
	a.check(r.arena, r.gen)
	if int(r.index) >= len(a.items) {
		panic(&StaleRefError{Arena: r.arena, Generation: r.gen, Current: a.gen})
	}
	return &a.items[r.index]
}

// Slice returns the values behind s. The slice is capped so appends by the
// caller never overwrite neighbouring values.
func (a *Arena[T]) Slice(s Span) []T {
	if s.n == 0 {
		return nil
	}
	a.check(s.arena, s.gen)
	end := s.start + s.n
	return a.items[s.start:end:end]
}

// Owns reports whether r was issued by this arena in its current generation.
func (a *Arena[T]) Owns(r Ref) bool {
	return r.arena == a.id && r.gen == a.gen && int(r.index) < len(a.items)
}

func (a *Arena[T]) check(arena, gen uint32) {
	if arena != a.id {
		panic(&StaleRefError{Arena: arena, Generation: gen, Current: a.id, Foreign: true})
	}
	if gen != a.gen {
		panic(&StaleRefError{Arena: arena, Generation: gen, Current: a.gen})
	}
}

// Reset frees every value in bulk and invalidates all outstanding handles.
// The backing storage is kept for reuse.
func (a *Arena[T]) Reset() {
	clear(a.items)
	a.items = a.items[:0]
	a.gen++
	if a.gen == 0 {
		a.gen = 1
	}
}

// Len returns the number of values allocated in the current generation.
func (a *Arena[T]) Len() int { return len(a.items) }

// Generation returns the current generation.
func (a *Arena[T]) Generation() uint32 { return a.gen }
