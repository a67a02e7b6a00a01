package ui

import (
	"testing"

	"github.com/framecore/framecore/internal/mathx"
)

func TestLayoutClipsToParent(t *testing.T) {
	u := New(8)
	panel := u.Add(Widget{Name: "panel", Kind: Panel, Desired: mathx.Rect{X: 10, Y: 10, W: 100, H: 50}})
	label := u.Add(Widget{Name: "label", Kind: Label, Text: "hi", Desired: mathx.Rect{X: 80, Y: 0, W: 100, H: 20}})
	u.Link(label, panel)

	u.Advance(mathx.NewVector2(800, 600), 0.016)

	w, _ := u.Node(label)
	want := mathx.Rect{X: 90, Y: 10, W: 20, H: 20}
	if w.Bounds() != want {
		t.Fatalf("label bounds = %+v, want %+v", w.Bounds(), want)
	}
}

func TestMessagesAppliedOnAdvance(t *testing.T) {
	u := New(8)
	label := u.Add(Widget{Kind: Label, Text: "old", Desired: mathx.Rect{W: 50, H: 10}})
	gone := u.Add(Widget{Kind: Panel})
	u.Remove(gone)

	u.Sender() <- Message{Target: label, Kind: SetText, Text: "new"}
	u.Sender() <- Message{Target: gone, Kind: SetHidden, Hidden: true}

	if w, _ := u.Node(label); w.Text != "old" {
		t.Fatal("message applied before Advance")
	}
	u.Advance(mathx.NewVector2(100, 100), 0)
	if w, _ := u.Node(label); w.Text != "new" {
		t.Fatalf("text = %q", w.Text)
	}
	if u.Dropped() != 1 {
		t.Fatalf("Dropped = %d", u.Dropped())
	}
}

func TestDrawRebuildsCommands(t *testing.T) {
	u := New(8)
	u.Add(Widget{Kind: Button, Text: "OK", Desired: mathx.Rect{W: 40, H: 20}})
	hidden := u.Add(Widget{Kind: Panel, Hidden: true, Desired: mathx.Rect{W: 40, H: 20}})
	u.Link(u.Add(Widget{Kind: Label, Text: "x", Desired: mathx.Rect{W: 5, H: 5}}), hidden)
	u.Add(Widget{Kind: Panel, Desired: mathx.Rect{X: 500, Y: 500, W: 10, H: 10}}) // off-screen

	u.Advance(mathx.NewVector2(100, 100), 0)
	dc := u.Draw()
	if len(dc.Commands) != 2 || dc.Commands[0].Kind != DrawRect || dc.Commands[1].Text != "OK" {
		t.Fatalf("commands = %+v", dc.Commands)
	}
	if dc = u.Draw(); len(dc.Commands) != 2 || dc.Frame != 2 {
		t.Fatalf("second draw: %d commands, frame %d", len(dc.Commands), dc.Frame)
	}
}

func TestCells(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"日本", 4},
		{"ＡＢ", 4},
		{"a日", 3},
		{"", 0},
	}
	for _, tt := range tests {
		if got := Cells(tt.in); got != tt.want {
			t.Errorf("Cells(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
