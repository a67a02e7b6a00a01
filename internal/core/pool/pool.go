// Package pool provides generational slot storage. Freed slots are reused
// with a bumped generation so stale handles are detected instead of aliasing
// a new occupant.
package pool

import (
	"github.com/framecore/framecore/internal/core/visitor"
)

type record[T any] struct {
	generation uint32
	payload    *T // nil when the slot is free
}

// Pool manages payload allocation with generational indices and a free list.
type Pool[T any] struct {
	records  []record[T]
	freeList []uint32
	alive    int
}

func New[T any]() *Pool[T] {
	return &Pool[T]{
		records:  make([]record[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Spawn stores v and returns its handle.
func (p *Pool[T]) Spawn(v T) Handle[T] {
	payload := new(T)
	*payload = v
	p.alive++
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.records[idx].payload = payload
		return NewHandle[T](idx, p.records[idx].generation)
	}
	idx := uint32(len(p.records))
	p.records = append(p.records, record[T]{generation: 1, payload: payload})
	return NewHandle[T](idx, 1)
}

// IsValid reports whether h names a live slot.
func (p *Pool[T]) IsValid(h Handle[T]) bool {
	idx := h.Index()
	if h.IsNone() || int(idx) >= len(p.records) {
		return false
	}
	r := p.records[idx]
	return r.payload != nil && r.generation == h.Generation()
}

// Borrow returns the payload for h. The pointer stays valid until the slot is freed.
func (p *Pool[T]) Borrow(h Handle[T]) (*T, bool) {
	if !p.IsValid(h) {
		return nil, false
	}
	return p.records[h.Index()].payload, true
}

// Free releases the slot and returns its payload. Stale handles are ignored.
func (p *Pool[T]) Free(h Handle[T]) (T, bool) {
	var zero T
	if !p.IsValid(h) {
		return zero, false
	}
	idx := h.Index()
	r := &p.records[idx]
	v := *r.payload
	r.payload = nil
	r.generation++
	p.freeList = append(p.freeList, idx)
	p.alive--
	return v, true
}

// Len returns the number of live payloads.
func (p *Pool[T]) Len() int { return p.alive }

// Each calls fn for every live payload in slot order.
func (p *Pool[T]) Each(fn func(Handle[T], *T)) {
	for i := range p.records {
		r := p.records[i]
		if r.payload != nil {
			fn(NewHandle[T](uint32(i), r.generation), r.payload)
		}
	}
}

// Handles returns the live handles in slot order.
func (p *Pool[T]) Handles() []Handle[T] {
	out := make([]Handle[T], 0, p.alive)
	p.Each(func(h Handle[T], _ *T) { out = append(out, h) })
	return out
}

// Clear frees every slot. Generations are kept so old handles stay invalid.
func (p *Pool[T]) Clear() {
	p.freeList = p.freeList[:0]
	for i := len(p.records) - 1; i >= 0; i-- {
		r := &p.records[i]
		if r.payload != nil {
			r.payload = nil
			r.generation++
		}
		p.freeList = append(p.freeList, uint32(i))
	}
	p.alive = 0
}

// Visit persists every slot, free or not, with its generation, so handles
// stored elsewhere in the state resolve to the same payloads after loading.
func (p *Pool[T]) Visit(name string, v *visitor.Visitor, visitPayload func(name string, v *visitor.Visitor, payload *T) error) error {
	return v.Region(name, func() error {
		n := uint32(len(p.records))
		if err := v.Uint32("Length", &n); err != nil {
			return err
		}
		if err := v.CheckLength(n); err != nil {
			return err
		}
		if v.IsReading() {
			p.records = make([]record[T], n)
			p.freeList = p.freeList[:0]
			p.alive = 0
		}
		for i := range p.records {
			r := &p.records[i]
			err := v.Region(slotName(i), func() error {
				if err := v.Uint32("Generation", &r.generation); err != nil {
					return err
				}
				alive := r.payload != nil
				if err := v.Bool("Alive", &alive); err != nil {
					return err
				}
				if !alive {
					return nil
				}
				if v.IsReading() {
					r.payload = new(T)
				}
				return visitPayload("Payload", v, r.payload)
			})
			if err != nil {
				return err
			}
		}
		if v.IsReading() {
			for i := len(p.records) - 1; i >= 0; i-- {
				if p.records[i].payload == nil {
					p.freeList = append(p.freeList, uint32(i))
				} else {
					p.alive++
				}
			}
		}
		return nil
	})
}
