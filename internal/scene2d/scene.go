// Package scene2d holds 2D scenes. It mirrors package scene with nodes in the
// plane; behaviours and resolve contexts are shared with it.
package scene2d

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/physics"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/scene"
	"github.com/framecore/framecore/internal/sound"
)

// Scene is one 2D scene. Physics runs in the XY plane of a 3D world.
type Scene struct {
	Name         string
	Enabled      bool
	RenderTarget *resource.Texture

	Graph   *Graph
	Physics *physics.World
	Binder  *physics.Binder[Node]

	SoundContext uuid.UUID
	sound        *sound.Engine

	behaviors     []scene.Behavior
	behaviorNames []string

	frameSize mathx.Vector2
}

func New(name string) *Scene {
	w := physics.NewWorld()
	w.Gravity = mathx.Vector3{}
	return &Scene{
		Name:    name,
		Enabled: true,
		Graph:   NewGraph(),
		Physics: w,
		Binder:  physics.NewBinder[Node](),
	}
}

func (s *Scene) AddBehavior(b scene.Behavior) {
	s.behaviors = append(s.behaviors, b)
	s.behaviorNames = append(s.behaviorNames, b.Name())
}

func (s *Scene) Behaviors() []string        { return s.behaviorNames }
func (s *Scene) FrameSize() mathx.Vector2   { return s.frameSize }
func (s *Scene) SoundEngine() *sound.Engine { return s.sound }

// AddBody creates a body at the node's position and binds it.
func (s *Scene) AddBody(node Handle, body physics.Body) (physics.RigidBodyHandle, bool) {
	n, ok := s.Graph.Node(node)
	if !ok {
		return physics.RigidBodyHandle{}, false
	}
	body.Position = mathx.NewVector3(n.Position.X, n.Position.Y, 0)
	body.Rotation = mathx.NewVector3(0, 0, n.Rotation)
	h := s.Physics.AddBody(body)
	s.Binder.Bind(node, h)
	return h, true
}

// RemoveNode removes node and its subtree along with their bodies.
func (s *Scene) RemoveNode(node Handle) {
	for _, h := range s.Graph.Remove(node) {
		if body, ok := s.Binder.Unbind(h); ok {
			s.Physics.RemoveBody(body)
		}
	}
}

// ReleaseResources drops every node's hold on its texture.
func (s *Scene) ReleaseResources() {
	s.Graph.Each(func(_ Handle, n *Node) { n.release() })
}

// Advance moves the scene forward by dt seconds for a frame of frameSize.
func (s *Scene) Advance(frameSize mathx.Vector2, dt float32) {
	s.frameSize = frameSize
	s.Physics.Step(dt)
	s.Binder.Sync(s.Physics, func(h pool.Handle[Node], body *physics.Body) {
		if n, ok := s.Graph.Node(h); ok {
			n.Position = body.Position.XY()
			n.Rotation = body.Rotation.Z
		}
	})
	for _, b := range s.behaviors {
		b.Update(s, frameSize, dt)
	}
	s.Graph.UpdateTransforms()
	if s.sound == nil {
		return
	}
	var listener *Node
	s.Graph.Each(func(_ Handle, n *Node) {
		if listener == nil && n.Camera {
			listener = n
		}
	})
	if listener != nil {
		p := listener.GlobalPosition()
		_ = s.sound.SetListener(s.SoundContext, mathx.NewVector3(p.X, p.Y, 0))
	}
}

func (s *Scene) SceneName() string { return s.Name }
func (s *Scene) NodeCount() int    { return s.Graph.Len() }

// Translate moves the index-th node by the XY part of delta.
func (s *Scene) Translate(index int, delta mathx.Vector3) bool {
	h, n, ok := s.Graph.nth(index)
	if !ok {
		return false
	}
	n.Position = n.Position.Add(delta.XY())
	if body, ok := s.Binder.BodyOf(h); ok {
		if b, ok := s.Physics.Body(body); ok {
			b.Position = b.Position.Add(mathx.NewVector3(delta.X, delta.Y, 0))
		}
	}
	return true
}

// Resolve re-binds the render target, node textures, sound context and
// behaviours after a load.
func (s *Scene) Resolve(rc scene.ResolveContext) error {
	if s.RenderTarget != nil && rc.Resources != nil {
		tex, ok := rc.Resources.Texture(s.RenderTarget.Path())
		if !ok {
			return fmt.Errorf("scene2d %s: render target %s: %w", s.Name, s.RenderTarget.Path(), scene.ErrUnresolved)
		}
		s.RenderTarget = tex
	}
	var err error
	s.Graph.Each(func(_ Handle, n *Node) {
		if err != nil || rc.Resources == nil {
			return
		}
		n.release()
		if n.TexturePath == "" {
			return
		}
		t, ok := rc.Resources.Texture(n.TexturePath)
		if !ok {
			err = fmt.Errorf("scene2d %s: node %s: texture %s: %w", s.Name, n.Name, n.TexturePath, scene.ErrUnresolved)
			return
		}
		t.Acquire()
		n.Texture = t
	})
	if err != nil {
		return err
	}
	if rc.Sound != nil {
		s.sound = rc.Sound
		s.SoundContext = rc.Sound.EnsureContext(s.SoundContext)
	}
	names := s.behaviorNames
	s.behaviors, s.behaviorNames = nil, nil
	for _, name := range names {
		if rc.Behaviors == nil {
			return fmt.Errorf("scene2d %s: behaviour %s: %w", s.Name, name, scene.ErrUnresolved)
		}
		b, err := rc.Behaviors(name)
		if err != nil {
			return fmt.Errorf("scene2d %s: %w", s.Name, err)
		}
		s.AddBehavior(b)
	}
	return nil
}

func (s *Scene) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := v.String("Name", &s.Name); err != nil {
			return err
		}
		if err := v.Bool("Enabled", &s.Enabled); err != nil {
			return err
		}
		target := ""
		if s.RenderTarget != nil {
			target = s.RenderTarget.Path()
		}
		if err := v.String("RenderTarget", &target); err != nil {
			return err
		}
		if v.IsReading() {
			s.RenderTarget = nil
			if target != "" {
				s.RenderTarget = resource.Placeholder[resource.TextureData](target)
			}
		}
		if err := v.UUID("SoundContext", &s.SoundContext); err != nil {
			return err
		}
		if err := visitor.Slice(v, "Behaviors", &s.behaviorNames, func(name string, v *visitor.Visitor, b *string) error {
			return v.String(name, b)
		}); err != nil {
			return err
		}
		if err := s.Graph.Visit("Graph", v); err != nil {
			return err
		}
		if err := s.Physics.Visit("Physics", v); err != nil {
			return err
		}
		return s.Binder.Visit("Binder", v)
	})
}
