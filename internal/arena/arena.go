// Package arena provides a generation-checked object pool. Objects are
// addressed through typed Handle values instead of raw pointers so that
// back-references (clone chains, instantiation links) can never alias a freed
// object: a handle whose slot has been reused fails lookup.
package arena

import "fmt"

// Handle addresses an object of type T inside a Pool[T]. The zero Handle is
// never issued and is used as "absent".
type Handle[T any] struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was issued by a pool (it may still be stale).
func (h Handle[T]) Valid() bool { return h.gen != 0 }

// String renders the handle for logs.
func (h Handle[T]) String() string {
	if !h.Valid() {
		return "nil"
	}
	return fmt.Sprintf("%d.%d", h.index, h.gen)
}

type slot[T any] struct {
	gen  uint32
	used bool
	val  *T
}

// Pool owns a set of *T addressed by Handle[T]. Freed slots are recycled with
// a bumped generation. Not safe for concurrent use.
type Pool[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Alloc stores v and returns its handle.
func (p *Pool[T]) Alloc(v *T) Handle[T] {
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		p.slots = append(p.slots, slot[T]{})
		idx = uint32(len(p.slots) - 1)
	}
	s := &p.slots[idx]
	s.gen++
	if s.gen == 0 { // wrapped; generation 0 is reserved for the zero handle
		s.gen = 1
	}
	s.used = true
	s.val = v
	p.live++
	return Handle[T]{index: idx, gen: s.gen}
}

// Get returns the object for h, or false when h is absent or stale.
func (p *Pool[T]) Get(h Handle[T]) (*T, bool) {
	if !h.Valid() || int(h.index) >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return s.val, true
}

// MustGet is Get for handles the caller owns. A stale handle here means the
// ownership bookkeeping is broken, so it panics.
func (p *Pool[T]) MustGet(h Handle[T]) *T {
	v, ok := p.Get(h)
	if !ok {
		panic(fmt.Sprintf("arena: stale or absent handle %s", h))
	}
	return v
}

// Free releases the slot behind h. Freeing a stale handle panics.
func (p *Pool[T]) Free(h Handle[T]) {
	if _, ok := p.Get(h); !ok {
		panic(fmt.Sprintf("arena: double free of handle %s", h))
	}
	s := &p.slots[h.index]
	s.used = false
	s.val = nil
	p.free = append(p.free, h.index)
	p.live--
}

// Len returns the number of live objects.
func (p *Pool[T]) Len() int { return p.live }

// Each calls fn for every live object in slot order. fn must not free or
// allocate objects in p.
func (p *Pool[T]) Each(fn func(Handle[T], *T)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.used {
			fn(Handle[T]{index: uint32(i), gen: s.gen}, s.val)
		}
	}
}

// Handles returns a snapshot of every live handle, safe to iterate while
// freeing.
func (p *Pool[T]) Handles() []Handle[T] {
	out := make([]Handle[T], 0, p.live)
	p.Each(func(h Handle[T], _ *T) { out = append(out, h) })
	return out
}
