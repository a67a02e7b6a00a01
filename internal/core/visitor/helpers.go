package visitor

import (
	"cmp"
	"fmt"
	"slices"
)

// Region enters name, runs fn and leaves again. On any error the cursor is
// restored to where it was before the call, so a caller may treat the region
// as absent and keep visiting siblings.
func (v *Visitor) Region(name string, fn func() error) error {
	start := v.current
	if err := v.EnterRegion(name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		v.current = start
		return err
	}
	return v.LeaveRegion()
}

// Slice visits s as region name { Length, Item0..ItemN-1 }. When reading, the
// slice is replaced by one of the persisted length and each element is
// visited in place.
func Slice[T any](v *Visitor, name string, s *[]T, visit func(name string, v *Visitor, elem *T) error) error {
	return v.Region(name, func() error {
		n := uint32(len(*s))
		if err := v.Uint32("Length", &n); err != nil {
			return err
		}
		if err := v.CheckLength(n); err != nil {
			return err
		}
		if v.reading {
			*s = make([]T, n)
		}
		for i := range *s {
			if err := visit(itemName(i), v, &(*s)[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Map visits m as region name { Length, Item0 { Key, Value }.. }. Keys are
// written in the order given by compare so output is deterministic.
func Map[K comparable, V any](
	v *Visitor,
	name string,
	m *map[K]V,
	compare func(a, b K) int,
	visitKey func(name string, v *Visitor, k *K) error,
	visitValue func(name string, v *Visitor, val *V) error,
) error {
	return v.Region(name, func() error {
		n := uint32(len(*m))
		if err := v.Uint32("Length", &n); err != nil {
			return err
		}
		if err := v.CheckLength(n); err != nil {
			return err
		}
		if v.reading {
			out := make(map[K]V, n)
			for i := 0; i < int(n); i++ {
				var k K
				var val V
				err := v.Region(itemName(i), func() error {
					if err := visitKey("Key", v, &k); err != nil {
						return err
					}
					return visitValue("Value", v, &val)
				})
				if err != nil {
					return err
				}
				out[k] = val
			}
			*m = out
			return nil
		}
		keys := make([]K, 0, len(*m))
		for k := range *m {
			keys = append(keys, k)
		}
		if compare != nil {
			slices.SortFunc(keys, compare)
		}
		for i, k := range keys {
			val := (*m)[k]
			err := v.Region(itemName(i), func() error {
				if err := visitKey("Key", v, &k); err != nil {
					return err
				}
				return visitValue("Value", v, &val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Ordered is a compare function for ordered key types.
func Ordered[K cmp.Ordered](a, b K) int { return cmp.Compare(a, b) }

func itemName(i int) string { return fmt.Sprintf("Item%d", i) }
