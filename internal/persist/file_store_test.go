package persist

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "saves")
	s, err := NewFileStore(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return s, dir
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	payload := []byte("state bytes")

	if err := s.Save(ctx, "slot-1", payload); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "slot-1", append(payload, '!')); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "slot-1")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("state bytes!")) {
		t.Fatalf("Load = %q", got)
	}

	if err := s.Save(ctx, "a", nil); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Slot != "a" || list[1].Slot != "slot-1" || list[1].Size != 12 {
		t.Fatalf("List = %+v", list)
	}
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, "x", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "x.sav")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "x"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	if err := os.WriteFile(path, []byte("FC"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "x"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("short file err = %v, want ErrChecksum", err)
	}
}

func TestFileStoreErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("err = %v, want ErrSlotNotFound", err)
	}
	for _, bad := range []string{"", "../escape", ".hidden", "a/b"} {
		if err := s.Save(ctx, bad, nil); !errors.Is(err, ErrInvalidSlot) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidSlot", bad, err)
		}
	}
}
