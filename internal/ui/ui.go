// Package ui is the engine's UI root: a widget tree laid out against the
// window each frame and turned into a flat list of drawing commands.
package ui

import (
	"fmt"

	"golang.org/x/text/width"

	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/mathx"
)

// WidgetKind selects how a widget is drawn.
type WidgetKind uint8

const (
	Panel WidgetKind = iota
	Label
	Button
	Image
)

func (k WidgetKind) String() string {
	switch k {
	case Panel:
		return "panel"
	case Label:
		return "label"
	case Button:
		return "button"
	case Image:
		return "image"
	default:
		return fmt.Sprintf("WidgetKind(%d)", uint8(k))
	}
}

// NodeID refers to a widget in a UserInterface.
type NodeID = pool.Handle[Widget]

// Widget is one element of the UI tree. Desired is relative to the parent's
// top-left corner; Bounds is the laid-out rectangle after clipping.
type Widget struct {
	Name    string
	Kind    WidgetKind
	Text    string
	Desired mathx.Rect
	Color   uint32
	Hidden  bool

	bounds   mathx.Rect
	parent   NodeID
	children []NodeID
}

func (w *Widget) Bounds() mathx.Rect { return w.bounds }
func (w *Widget) Parent() NodeID     { return w.parent }

// MessageKind says what a Message changes.
type MessageKind uint8

const (
	SetText MessageKind = iota
	SetHidden
	SetDesired
	SetColor
)

// Message is a change to a widget queued from any goroutine and applied
// during the next Advance.
type Message struct {
	Target  NodeID
	Kind    MessageKind
	Text    string
	Hidden  bool
	Desired mathx.Rect
	Color   uint32
}

// CommandKind is the primitive a drawing command renders.
type CommandKind uint8

const (
	DrawRect CommandKind = iota
	DrawText
	DrawImage
)

// Command is one drawing primitive. Cells is the text width in terminal-style
// cells, with East Asian wide runes counting two.
type Command struct {
	Kind   CommandKind
	Bounds mathx.Rect
	Color  uint32
	Text   string
	Cells  int
}

// DrawingContext is the command list produced by Draw.
type DrawingContext struct {
	Commands []Command
	Frame    uint64
}

// UserInterface is the UI root. It is owned by the frame loop; only the
// message channel may be used from other goroutines.
type UserInterface struct {
	widgets  *pool.Pool[Widget]
	root     NodeID
	messages chan Message
	dc       DrawingContext
	window   mathx.Vector2
	dropped  int
}

func New(queue int) *UserInterface {
	if queue <= 0 {
		queue = 64
	}
	u := &UserInterface{
		widgets:  pool.New[Widget](),
		messages: make(chan Message, queue),
	}
	u.root = u.widgets.Spawn(Widget{Name: "__ROOT__", Kind: Panel})
	return u
}

func (u *UserInterface) Root() NodeID { return u.root }

// Sender returns the channel messages are queued on.
func (u *UserInterface) Sender() chan<- Message { return u.messages }

// Add attaches w below the root.
func (u *UserInterface) Add(w Widget) NodeID {
	w.parent, w.children = pool.None[Widget](), nil
	id := u.widgets.Spawn(w)
	u.Link(id, u.root)
	return id
}

// Link moves child below parent. Cycles are refused.
func (u *UserInterface) Link(child, parent NodeID) bool {
	c, ok := u.widgets.Borrow(child)
	if !ok || child == parent || !u.widgets.IsValid(parent) {
		return false
	}
	for h := parent; ; {
		p, ok := u.widgets.Borrow(h)
		if !ok || p.parent.IsNone() {
			break
		}
		if p.parent == child {
			return false
		}
		h = p.parent
	}
	if old, ok := u.widgets.Borrow(c.parent); ok {
		for i, x := range old.children {
			if x == child {
				old.children = append(old.children[:i], old.children[i+1:]...)
				break
			}
		}
	}
	p, _ := u.widgets.Borrow(parent)
	p.children = append(p.children, child)
	c.parent = parent
	return true
}

// Remove deletes id and its subtree.
func (u *UserInterface) Remove(id NodeID) bool {
	w, ok := u.widgets.Borrow(id)
	if !ok || id == u.root {
		return false
	}
	if p, ok := u.widgets.Borrow(w.parent); ok {
		for i, x := range p.children {
			if x == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	for stack := []NodeID{id}; len(stack) > 0; {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n, ok := u.widgets.Borrow(cur); ok {
			stack = append(stack, n.children...)
		}
		u.widgets.Free(cur)
	}
	return true
}

func (u *UserInterface) Node(id NodeID) (*Widget, bool) { return u.widgets.Borrow(id) }

// Len counts widgets, excluding the root.
func (u *UserInterface) Len() int { return u.widgets.Len() - 1 }

// Dropped counts messages aimed at widgets that no longer exist.
func (u *UserInterface) Dropped() int { return u.dropped }

// Advance applies queued messages and lays the tree out in a window of the
// given size. The root fills the window; every child is clipped to its parent.
func (u *UserInterface) Advance(windowSize mathx.Vector2, _ float32) {
	u.window = windowSize
	u.drain()

	root, _ := u.widgets.Borrow(u.root)
	root.bounds = mathx.Rect{W: windowSize.X, H: windowSize.Y}
	stack := append([]NodeID(nil), root.children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		w, ok := u.widgets.Borrow(id)
		if !ok {
			continue
		}
		p, _ := u.widgets.Borrow(w.parent)
		want := mathx.Rect{
			X: p.bounds.X + w.Desired.X,
			Y: p.bounds.Y + w.Desired.Y,
			W: w.Desired.W,
			H: w.Desired.H,
		}
		w.bounds = want.Intersect(p.bounds)
		stack = append(stack, w.children...)
	}
}

func (u *UserInterface) drain() {
	for {
		select {
		case m := <-u.messages:
			w, ok := u.widgets.Borrow(m.Target)
			if !ok {
				u.dropped++
				continue
			}
			switch m.Kind {
			case SetText:
				w.Text = m.Text
			case SetHidden:
				w.Hidden = m.Hidden
			case SetDesired:
				w.Desired = m.Desired
			case SetColor:
				w.Color = m.Color
			}
		default:
			return
		}
	}
}

// Draw rebuilds the drawing context from the current layout. Hidden widgets
// and their subtrees, and widgets clipped away entirely, emit nothing.
func (u *UserInterface) Draw() *DrawingContext {
	u.dc.Commands = u.dc.Commands[:0]
	u.dc.Frame++
	root, _ := u.widgets.Borrow(u.root)
	for _, id := range root.children {
		u.draw(id)
	}
	return &u.dc
}

func (u *UserInterface) draw(id NodeID) {
	w, ok := u.widgets.Borrow(id)
	if !ok || w.Hidden || w.bounds.Empty() {
		return
	}
	switch w.Kind {
	case Panel:
		u.dc.Commands = append(u.dc.Commands, Command{Kind: DrawRect, Bounds: w.bounds, Color: w.Color})
	case Label:
		u.dc.Commands = append(u.dc.Commands, Command{Kind: DrawText, Bounds: w.bounds, Color: w.Color, Text: w.Text, Cells: Cells(w.Text)})
	case Button:
		u.dc.Commands = append(u.dc.Commands,
			Command{Kind: DrawRect, Bounds: w.bounds, Color: w.Color},
			Command{Kind: DrawText, Bounds: w.bounds, Color: w.Color, Text: w.Text, Cells: Cells(w.Text)},
		)
	case Image:
		u.dc.Commands = append(u.dc.Commands, Command{Kind: DrawImage, Bounds: w.bounds, Text: w.Text})
	}
	for _, c := range w.children {
		u.draw(c)
	}
}

// Cells returns the display width of s: wide and fullwidth runes take two
// cells, everything else one.
func Cells(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
