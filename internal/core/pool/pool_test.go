package pool

import (
	"errors"
	"testing"

	"github.com/framecore/framecore/internal/core/visitor"
)

type item struct {
	Name string
}

func visitItem(name string, v *visitor.Visitor, it *item) error {
	return v.Region(name, func() error { return v.String("Name", &it.Name) })
}

func TestSpawnBorrowFree(t *testing.T) {
	p := New[item]()
	a := p.Spawn(item{Name: "a"})
	b := p.Spawn(item{Name: "b"})

	if a.IsNone() || b.IsNone() {
		t.Fatal("spawned handles must not be none")
	}
	if got, ok := p.Borrow(a); !ok || got.Name != "a" {
		t.Fatalf("Borrow(a) = %v, %v", got, ok)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}

	v, ok := p.Free(a)
	if !ok || v.Name != "a" {
		t.Fatalf("Free(a) = %v, %v", v, ok)
	}
	if p.IsValid(a) {
		t.Error("freed handle still valid")
	}

	c := p.Spawn(item{Name: "c"})
	if c.Index() != a.Index() {
		t.Errorf("slot not reused: %v vs %v", c, a)
	}
	if c.Generation() == a.Generation() {
		t.Error("reused slot must get a new generation")
	}
	if _, ok := p.Borrow(a); ok {
		t.Error("stale handle resolved to the new occupant")
	}
	if _, ok := p.Free(a); ok {
		t.Error("freeing a stale handle must be a no-op")
	}
}

func TestNoneNeverValid(t *testing.T) {
	p := New[item]()
	p.Spawn(item{})
	if p.IsValid(None[item]()) {
		t.Error("none handle resolved")
	}
	if None[item]().String() != "Handle(none)" {
		t.Error("unexpected none string")
	}
}

func TestClearInvalidatesHandles(t *testing.T) {
	p := New[item]()
	h := p.Spawn(item{Name: "x"})
	p.Clear()
	if p.Len() != 0 || p.IsValid(h) {
		t.Fatal("clear left live slots")
	}
	h2 := p.Spawn(item{Name: "y"})
	if h2 == h {
		t.Error("handle reused with the same generation after Clear")
	}
}

func TestEachInSlotOrder(t *testing.T) {
	p := New[item]()
	for _, n := range []string{"a", "b", "c"} {
		p.Spawn(item{Name: n})
	}
	var got string
	p.Each(func(_ Handle[item], it *item) { got += it.Name })
	if got != "abc" {
		t.Errorf("Each order = %q", got)
	}
}

func TestVisitPreservesHandles(t *testing.T) {
	p := New[item]()
	a := p.Spawn(item{Name: "a"})
	b := p.Spawn(item{Name: "b"})
	p.Free(a)
	c := p.Spawn(item{Name: "c"}) // reuses a's slot with generation 2

	w := visitor.NewWriter()
	if err := p.Visit("Pool", w, visitItem); err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	loaded := New[item]()
	if err := loaded.Visit("Pool", r, visitItem); err != nil {
		t.Fatal(err)
	}

	if loaded.Len() != 2 {
		t.Fatalf("Len = %d, want 2", loaded.Len())
	}
	if it, ok := loaded.Borrow(b); !ok || it.Name != "b" {
		t.Errorf("b = %v, %v", it, ok)
	}
	if it, ok := loaded.Borrow(c); !ok || it.Name != "c" {
		t.Errorf("c = %v, %v", it, ok)
	}
	if loaded.IsValid(a) {
		t.Error("stale handle valid after load")
	}
}

func TestHandleVisit(t *testing.T) {
	h := NewHandle[item](12, 5)
	w := visitor.NewWriter()
	if err := h.Visit("H", w); err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	var got Handle[item]
	if err := got.Visit("H", r); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %v, want %v", got, h)
	}
}

func TestVisitRejectsOversizedLength(t *testing.T) {
	w := visitor.NewWriter()
	n := uint32(0xFFFFFFFF)
	err := w.Region("Items", func() error { return w.Uint32("Length", &n) })
	if err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}

	p := New[item]()
	p.Spawn(item{Name: "kept"})
	if err := p.Visit("Items", r, visitItem); !errors.Is(err, visitor.ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d after rejected load, want 1", p.Len())
	}
}
