package scene2d

import (
	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/resource"
)

// Handle refers to a node in a Graph.
type Handle = pool.Handle[Node]

// Node is a 2D node. Rotation is in radians; transforms are parent-relative.
type Node struct {
	Name     string
	Position mathx.Vector2
	Rotation float32
	Scale    mathx.Vector2
	Layer    int32

	TexturePath string
	Texture     *resource.Texture

	// Camera nodes define the view; the active one feeds the sound listener.
	Camera bool

	parent   Handle
	children []Handle

	globalPosition mathx.Vector2
	globalRotation float32
	globalScale    mathx.Vector2
}

func NewNode(name string) Node {
	return Node{Name: name, Scale: mathx.NewVector2(1, 1)}
}

func (n *Node) release() {
	if n.Texture != nil {
		n.Texture.Release()
		n.Texture = nil
	}
}

func (n *Node) Parent() Handle                { return n.parent }
func (n *Node) Children() []Handle            { return n.children }
func (n *Node) GlobalPosition() mathx.Vector2 { return n.globalPosition }

func (n *Node) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := v.String("Name", &n.Name); err != nil {
			return err
		}
		if err := n.Position.Visit("Position", v); err != nil {
			return err
		}
		if err := v.Float32("Rotation", &n.Rotation); err != nil {
			return err
		}
		if err := n.Scale.Visit("Scale", v); err != nil {
			return err
		}
		if err := v.Int32("Layer", &n.Layer); err != nil {
			return err
		}
		if err := v.String("Texture", &n.TexturePath); err != nil {
			return err
		}
		if err := v.Bool("Camera", &n.Camera); err != nil {
			return err
		}
		if err := n.parent.Visit("Parent", v); err != nil {
			return err
		}
		return visitor.Slice(v, "Children", &n.children, func(name string, v *visitor.Visitor, h *Handle) error {
			return h.Visit(name, v)
		})
	})
}

// Graph is the 2D node tree.
type Graph struct {
	nodes *pool.Pool[Node]
	root  Handle
}

func NewGraph() *Graph {
	g := &Graph{nodes: pool.New[Node]()}
	g.root = g.nodes.Spawn(NewNode("__ROOT__"))
	return g
}

func (g *Graph) Root() Handle { return g.root }

// Add inserts n under the root.
func (g *Graph) Add(n Node) Handle {
	n.parent = pool.None[Node]()
	n.children = nil
	h := g.nodes.Spawn(n)
	g.Link(h, g.root)
	return h
}

// Link makes child a child of parent, refusing cycles.
func (g *Graph) Link(child, parent Handle) bool {
	c, ok := g.nodes.Borrow(child)
	if !ok || !g.nodes.IsValid(parent) || child == parent {
		return false
	}
	for h := parent; ; {
		n, ok := g.nodes.Borrow(h)
		if !ok || n.parent.IsNone() {
			break
		}
		if n.parent == child {
			return false
		}
		h = n.parent
	}
	g.detach(child, c)
	p, _ := g.nodes.Borrow(parent)
	p.children = append(p.children, child)
	c.parent = parent
	return true
}

func (g *Graph) detach(h Handle, n *Node) {
	if p, ok := g.nodes.Borrow(n.parent); ok {
		for i, c := range p.children {
			if c == h {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	n.parent = pool.None[Node]()
}

// Remove deletes h with its subtree, releasing node textures, and returns
// the removed handles.
func (g *Graph) Remove(h Handle) []Handle {
	n, ok := g.nodes.Borrow(h)
	if !ok || h == g.root {
		return nil
	}
	g.detach(h, n)
	var removed []Handle
	for stack := []Handle{h}; len(stack) > 0; {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node, ok := g.nodes.Free(cur); ok {
			stack = append(stack, node.children...)
			node.release()
		}
		removed = append(removed, cur)
	}
	return removed
}

func (g *Graph) Node(h Handle) (*Node, bool) { return g.nodes.Borrow(h) }

func (g *Graph) Len() int { return g.nodes.Len() - 1 }

// Each visits every node but the root in slot order.
func (g *Graph) Each(fn func(Handle, *Node)) {
	g.nodes.Each(func(h Handle, n *Node) {
		if h != g.root {
			fn(h, n)
		}
	})
}

func (g *Graph) Find(name string) (Handle, bool) {
	var (
		out   Handle
		found bool
	)
	g.Each(func(h Handle, n *Node) {
		if !found && n.Name == name {
			out, found = h, true
		}
	})
	return out, found
}

func (g *Graph) nth(i int) (Handle, *Node, bool) {
	var (
		out  Handle
		node *Node
		k    int
	)
	g.Each(func(h Handle, n *Node) {
		if k == i {
			out, node = h, n
		}
		k++
	})
	return out, node, node != nil
}

// UpdateTransforms recomputes global transforms from the root down.
func (g *Graph) UpdateTransforms() {
	root, ok := g.nodes.Borrow(g.root)
	if !ok {
		return
	}
	root.globalPosition, root.globalRotation, root.globalScale = root.Position, root.Rotation, root.Scale
	stack := append([]Handle(nil), root.children...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := g.nodes.Borrow(h)
		if !ok {
			continue
		}
		p, ok := g.nodes.Borrow(n.parent)
		if !ok {
			continue
		}
		n.globalPosition = p.globalPosition.Add(n.Position.Mul(p.globalScale).Rotate(p.globalRotation))
		n.globalRotation = p.globalRotation + n.Rotation
		n.globalScale = p.globalScale.Mul(n.Scale)
		stack = append(stack, n.children...)
	}
}

func (g *Graph) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := g.root.Visit("Root", v); err != nil {
			return err
		}
		return g.nodes.Visit("Nodes", v, func(name string, v *visitor.Visitor, n *Node) error {
			return n.Visit(name, v)
		})
	})
}
