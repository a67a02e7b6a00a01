package pool

import (
	"fmt"

	"github.com/framecore/framecore/internal/core/visitor"
)

// Handle encodes a 32-bit index in the lower bits and a 32-bit generation in
// the upper bits. The type parameter only tags which pool a handle belongs
// to. Generations start at 1, so the zero handle never names a live slot.
type Handle[T any] uint64

// NewHandle builds a handle from its parts.
func NewHandle[T any](index, generation uint32) Handle[T] {
	return Handle[T](uint64(generation)<<32 | uint64(index))
}

// None returns the handle that refers to nothing.
func None[T any]() Handle[T] { return 0 }

func (h Handle[T]) Index() uint32      { return uint32(h) }
func (h Handle[T]) Generation() uint32 { return uint32(h >> 32) }
func (h Handle[T]) IsNone() bool       { return h == 0 }
func (h Handle[T]) IsSome() bool       { return h != 0 }

func (h Handle[T]) String() string {
	if h.IsNone() {
		return "Handle(none)"
	}
	return fmt.Sprintf("Handle(%d:%d)", h.Index(), h.Generation())
}

// Compare orders handles by index, then generation.
func Compare[T any](a, b Handle[T]) int {
	switch {
	case a.Index() != b.Index():
		if a.Index() < b.Index() {
			return -1
		}
		return 1
	case a.Generation() != b.Generation():
		if a.Generation() < b.Generation() {
			return -1
		}
		return 1
	}
	return 0
}

// Visit persists the handle as region name { Index, Generation }.
func (h *Handle[T]) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		index, gen := h.Index(), h.Generation()
		if err := v.Uint32("Index", &index); err != nil {
			return err
		}
		if err := v.Uint32("Generation", &gen); err != nil {
			return err
		}
		if v.IsReading() {
			*h = NewHandle[T](index, gen)
		}
		return nil
	})
}

func slotName(i int) string { return fmt.Sprintf("Slot%d", i) }
