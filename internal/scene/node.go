package scene

import (
	"fmt"

	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/resource"
)

// NodeKind is what a node represents.
type NodeKind uint8

const (
	KindPivot NodeKind = iota
	KindMesh
	KindCamera
	KindLight
)

func (k NodeKind) String() string {
	switch k {
	case KindPivot:
		return "pivot"
	case KindMesh:
		return "mesh"
	case KindCamera:
		return "camera"
	case KindLight:
		return "light"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// ParseNodeKind is the inverse of NodeKind.String.
func ParseNodeKind(s string) (NodeKind, error) {
	for k := KindPivot; k <= KindLight; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// Handle refers to a node in a Graph.
type Handle = pool.Handle[Node]

// Node is one element of the scene graph. Rotation is in Euler degrees and
// all transform fields are local to the parent.
type Node struct {
	Name     string
	Kind     NodeKind
	Position mathx.Vector3
	Rotation mathx.Vector3
	Scale    mathx.Vector3

	// ModelPath and TexturePath name resources; Model and Texture are bound
	// to them at creation and again by Scene.Resolve.
	ModelPath   string
	TexturePath string
	Model       *resource.Model
	Texture     *resource.Texture

	// Camera settings. Aspect is recomputed from the frame size every Advance.
	FOV    float32
	Aspect float32
	Active bool

	parent   Handle
	children []Handle

	globalPosition mathx.Vector3
	globalRotation mathx.Vector3
	globalScale    mathx.Vector3
}

// NewNode returns a node with unit scale.
func NewNode(name string, kind NodeKind) Node {
	n := Node{Name: name, Kind: kind, Scale: mathx.One()}
	if kind == KindCamera {
		n.FOV = 75
		n.Active = true
	}
	return n
}

// release drops the node's hold on its model and texture.
func (n *Node) release() {
	if n.Model != nil {
		n.Model.Release()
		n.Model = nil
	}
	if n.Texture != nil {
		n.Texture.Release()
		n.Texture = nil
	}
}

func (n *Node) Parent() Handle { return n.parent }

func (n *Node) Children() []Handle { return n.children }

// GlobalPosition is valid after the owning scene's last Advance.
func (n *Node) GlobalPosition() mathx.Vector3 { return n.globalPosition }

func (n *Node) GlobalRotation() mathx.Vector3 { return n.globalRotation }

func (n *Node) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := v.String("Name", &n.Name); err != nil {
			return err
		}
		kind := uint32(n.Kind)
		if err := v.Uint32("Kind", &kind); err != nil {
			return err
		}
		n.Kind = NodeKind(kind)
		if err := n.Position.Visit("Position", v); err != nil {
			return err
		}
		if err := n.Rotation.Visit("Rotation", v); err != nil {
			return err
		}
		if err := n.Scale.Visit("Scale", v); err != nil {
			return err
		}
		if err := v.String("Model", &n.ModelPath); err != nil {
			return err
		}
		if err := v.String("Texture", &n.TexturePath); err != nil {
			return err
		}
		if err := v.Float32("Fov", &n.FOV); err != nil {
			return err
		}
		if err := v.Bool("Active", &n.Active); err != nil {
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
