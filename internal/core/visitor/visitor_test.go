package visitor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type sample struct {
	Name  string
	Count uint32
	Speed float32
	ID    uuid.UUID
	Tags  []string
	Score map[string]int32
}

func (s *sample) Visit(name string, v *Visitor) error {
	return v.Region(name, func() error {
		if err := v.String("Name", &s.Name); err != nil {
			return err
		}
		if err := v.Uint32("Count", &s.Count); err != nil {
			return err
		}
		if err := v.Float32("Speed", &s.Speed); err != nil {
			return err
		}
		if err := v.UUID("Id", &s.ID); err != nil {
			return err
		}
		if err := Slice(v, "Tags", &s.Tags, func(name string, v *Visitor, t *string) error {
			return v.String(name, t)
		}); err != nil {
			return err
		}
		return Map(v, "Score", &s.Score, Ordered[string],
			func(name string, v *Visitor, k *string) error { return v.String(name, k) },
			func(name string, v *Visitor, val *int32) error { return v.Int32(name, val) },
		)
	})
}

func TestRoundTrip(t *testing.T) {
	in := &sample{
		Name:  "level-1",
		Count: 42,
		Speed: 1.5,
		ID:    uuid.New(),
		Tags:  []string{"a", "b"},
		Score: map[string]int32{"x": -3, "y": 9},
	}

	w := NewWriter()
	if err := in.Visit("Sample", w); err != nil {
		t.Fatalf("write: %v", err)
	}
	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	r, err := Load(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.IsReading() {
		t.Fatal("reader should be in read mode")
	}
	out := &sample{}
	if err := out.Visit("Sample", r); err != nil {
		t.Fatalf("read: %v", err)
	}

	if out.Name != in.Name || out.Count != in.Count || out.Speed != in.Speed || out.ID != in.ID {
		t.Errorf("scalar mismatch: got %+v, want %+v", out, in)
	}
	if len(out.Tags) != 2 || out.Tags[0] != "a" || out.Tags[1] != "b" {
		t.Errorf("tags = %v", out.Tags)
	}
	if len(out.Score) != 2 || out.Score["x"] != -3 || out.Score["y"] != 9 {
		t.Errorf("score = %v", out.Score)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	s := &sample{Score: map[string]int32{"c": 3, "a": 1, "b": 2}}
	var first []byte
	for i := 0; i < 5; i++ {
		w := NewWriter()
		if err := s.Visit("S", w); err != nil {
			t.Fatal(err)
		}
		got := w.Encode()
		if first == nil {
			first = got
			continue
		}
		if !bytes.Equal(first, got) {
			t.Fatal("encoding differs between runs")
		}
	}
}

func TestMissingRegionAndField(t *testing.T) {
	w := NewWriter()
	if err := w.EnterRegion("A"); err != nil {
		t.Fatal(err)
	}
	var x uint32 = 7
	if err := w.Uint32("X", &x); err != nil {
		t.Fatal(err)
	}
	if err := w.LeaveRegion(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnterRegion("B"); !errors.Is(err, ErrRegionNotFound) {
		t.Fatalf("EnterRegion(B) = %v, want ErrRegionNotFound", err)
	}
	if err := r.EnterRegion("A"); err != nil {
		t.Fatal(err)
	}
	var y uint32
	if err := r.Uint32("Y", &y); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("Uint32(Y) = %v, want ErrFieldNotFound", err)
	}
	var wrong uint64
	if err := r.Uint64("X", &wrong); !errors.Is(err, ErrFieldKind) {
		t.Errorf("Uint64(X) = %v, want ErrFieldKind", err)
	}
	if err := r.Uint32("X", &y); err != nil || y != 7 {
		t.Errorf("Uint32(X) = %d, %v", y, err)
	}
}

func TestRegionRestoresCursorOnError(t *testing.T) {
	w := NewWriter()
	_ = w.Region("Outer", func() error {
		var a uint32 = 1
		return w.Uint32("A", &a)
	})
	r, err := NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	err = r.Region("Outer", func() error {
		var missing bool
		return r.Bool("Missing", &missing)
	})
	if !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("err = %v", err)
	}
	// Cursor must be back at the root, where Outer is visible again.
	if !r.HasRegion("Outer") {
		t.Error("cursor was not restored to the root")
	}
}

func TestLeaveRegionAtRoot(t *testing.T) {
	if err := NewWriter().LeaveRegion(); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("err = %v, want ErrUnbalanced", err)
	}
}

func TestCorruptInput(t *testing.T) {
	w := NewWriter()
	s := &sample{Name: "x", Tags: []string{"t"}}
	if err := s.Visit("S", w); err != nil {
		t.Fatal(err)
	}
	good := w.Encode()

	cases := map[string][]byte{
		"empty":     nil,
		"bad magic": append([]byte("XXXX"), good[4:]...),
		"truncated": good[:len(good)-3],
		"trailing":  append(append([]byte{}, good...), 0xff),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewReader(data); !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

// lengthOnly encodes a region that declares n entries but carries none.
func lengthOnly(t *testing.T, region string, n uint32) *Visitor {
	t.Helper()
	w := NewWriter()
	if err := w.EnterRegion(region); err != nil {
		t.Fatal(err)
	}
	if err := w.Uint32("Length", &n); err != nil {
		t.Fatal(err)
	}
	if err := w.LeaveRegion(); err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestOversizedLengthRejected(t *testing.T) {
	t.Run("slice", func(t *testing.T) {
		r := lengthOnly(t, "Items", 0xFFFFFFFF)
		var got []string
		err := Slice(r, "Items", &got, func(name string, v *Visitor, s *string) error {
			return v.String(name, s)
		})
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("err = %v, want ErrCorrupt", err)
		}
		if got != nil {
			t.Errorf("slice allocated for a corrupt length: len %d", len(got))
		}
	})
	t.Run("map", func(t *testing.T) {
		r := lengthOnly(t, "Entries", 3)
		var got map[string]uint32
		err := Map(r, "Entries", &got, Ordered[string],
			func(name string, v *Visitor, k *string) error { return v.String(name, k) },
			func(name string, v *Visitor, val *uint32) error { return v.Uint32(name, val) },
		)
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("err = %v, want ErrCorrupt", err)
		}
	})
	t.Run("empty is fine", func(t *testing.T) {
		r := lengthOnly(t, "Items", 0)
		got := []string{"stale"}
		err := Slice(r, "Items", &got, func(name string, v *Visitor, s *string) error {
			return v.String(name, s)
		})
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v; want empty slice", got, err)
		}
	})
}
