package scene

import (
	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
)

// Graph is a tree of nodes stored in a generational pool. It always has a
// root pivot; new nodes are attached to it.
type Graph struct {
	nodes *pool.Pool[Node]
	root  Handle
}

func NewGraph() *Graph {
	g := &Graph{nodes: pool.New[Node]()}
	g.root = g.nodes.Spawn(NewNode("__ROOT__", KindPivot))
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

// Link makes child a child of parent. Linking a node below itself is refused.
func (g *Graph) Link(child, parent Handle) bool {
	c, ok := g.nodes.Borrow(child)
	if !ok || !g.nodes.IsValid(parent) || child == parent || g.isAncestor(child, parent) {
		return false
	}
	g.unlink(child, c)
	p, _ := g.nodes.Borrow(parent)
	p.children = append(p.children, child)
	c.parent = parent
	return true
}

// isAncestor reports whether a is an ancestor of h.
func (g *Graph) isAncestor(a, h Handle) bool {
	for {
		n, ok := g.nodes.Borrow(h)
		if !ok || n.parent.IsNone() {
			return false
		}
		if n.parent == a {
			return true
		}
		h = n.parent
	}
}

func (g *Graph) unlink(h Handle, n *Node) {
	p, ok := g.nodes.Borrow(n.parent)
	if !ok {
		return
	}
	for i, c := range p.children {
		if c == h {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = pool.None[Node]()
}

// Remove deletes h and its whole subtree and returns the removed handles.
// Removed nodes release their resources. The root cannot be removed.
func (g *Graph) Remove(h Handle) []Handle {
	n, ok := g.nodes.Borrow(h)
	if !ok || h == g.root {
		return nil
	}
	g.unlink(h, n)
	var removed []Handle
	stack := []Handle{h}
	for len(stack) > 0 {
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

func (g *Graph) IsValid(h Handle) bool { return g.nodes.IsValid(h) }

// Len counts nodes, excluding the root.
func (g *Graph) Len() int { return g.nodes.Len() - 1 }

// Each visits every node except the root in slot order.
func (g *Graph) Each(fn func(Handle, *Node)) {
	g.nodes.Each(func(h Handle, n *Node) {
		if h != g.root {
			fn(h, n)
		}
	})
}

// Nth returns the i-th node in Each order.
func (g *Graph) Nth(i int) (Handle, *Node, bool) {
	var (
		out   Handle
		node  *Node
		count int
	)
	g.Each(func(h Handle, n *Node) {
		if count == i {
			out, node = h, n
		}
		count++
	})
	return out, node, node != nil
}

// Find returns the first node with the given name.
func (g *Graph) Find(name string) (Handle, bool) {
	found := pool.None[Node]()
	g.Each(func(h Handle, n *Node) {
		if found.IsNone() && n.Name == name {
			found = h
		}
	})
	return found, found.IsSome()
}

// ActiveCamera returns the first active camera.
func (g *Graph) ActiveCamera() (Handle, *Node, bool) {
	var (
		cam  Handle
		node *Node
	)
	g.Each(func(h Handle, n *Node) {
		if node == nil && n.Kind == KindCamera && n.Active {
			cam, node = h, n
		}
	})
	return cam, node, node != nil
}

// UpdateTransforms recomputes global transforms from the root down.
func (g *Graph) UpdateTransforms() {
	root, ok := g.nodes.Borrow(g.root)
	if !ok {
		return
	}
	root.globalPosition = root.Position
	root.globalRotation = root.Rotation
	root.globalScale = root.Scale
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
		offset := n.Position.Mul(p.globalScale).RotateEuler(p.globalRotation)
		n.globalPosition = p.globalPosition.Add(offset)
		n.globalRotation = p.globalRotation.Add(n.Rotation)
		n.globalScale = p.globalScale.Mul(n.Scale)
		stack = append(stack, n.children...)
	}
}

// Visit persists every node with its exact handle, so handles held by the
// binder stay valid after loading.
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
