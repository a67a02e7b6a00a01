// Package scene holds 3D scenes: a node graph, the physics world its bodies
// live in, the binder between the two, and the behaviours that drive it.
package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/physics"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/sound"
)

// ErrUnresolved is returned by Resolve when a saved reference has nothing to
// bind to.
var ErrUnresolved = errors.New("scene: unresolved reference")

// ResolveContext carries what Resolve re-binds saved references against.
type ResolveContext struct {
	Resources *resource.Manager
	Sound     *sound.Engine
	Behaviors BehaviorFactory
}

// Scene is one 3D scene.
type Scene struct {
	Name    string
	Enabled bool

	// RenderTarget, when set, is rendered into instead of the window and
	// its size replaces the window size for this scene.
	RenderTarget *resource.Texture

	Graph   *Graph
	Physics *physics.World
	Binder  *physics.Binder[Node]

	SoundContext uuid.UUID
	sound        *sound.Engine

	behaviors     []Behavior
	behaviorNames []string

	frameSize mathx.Vector2
	elapsed   float32
}

func New(name string) *Scene {
	return &Scene{
		Name:    name,
		Enabled: true,
		Graph:   NewGraph(),
		Physics: physics.NewWorld(),
		Binder:  physics.NewBinder[Node](),
	}
}

// AddBehavior attaches b; it runs on every Advance after physics.
func (s *Scene) AddBehavior(b Behavior) {
	s.behaviors = append(s.behaviors, b)
	s.behaviorNames = append(s.behaviorNames, b.Name())
}

// Behaviors returns the names of the attached behaviours in run order.
func (s *Scene) Behaviors() []string { return s.behaviorNames }

// FrameSize is the size passed to the last Advance.
func (s *Scene) FrameSize() mathx.Vector2 { return s.frameSize }

// Elapsed is the scene time accumulated by Advance.
func (s *Scene) Elapsed() float32 { return s.elapsed }

// SoundEngine is the engine the scene's sound context lives in, if any.
func (s *Scene) SoundEngine() *sound.Engine { return s.sound }

// AddBody creates a rigid body for node and binds the two.
func (s *Scene) AddBody(node Handle, body physics.Body) (physics.RigidBodyHandle, bool) {
	n, ok := s.Graph.Node(node)
	if !ok {
		return physics.RigidBodyHandle{}, false
	}
	body.Position = n.Position
	body.Rotation = n.Rotation
	h := s.Physics.AddBody(body)
	s.Binder.Bind(node, h)
	return h, true
}

// RemoveNode removes node and its subtree, dropping any bodies bound to them.
func (s *Scene) RemoveNode(node Handle) {
	for _, h := range s.Graph.Remove(node) {
		if body, ok := s.Binder.Unbind(h); ok {
			s.Physics.RemoveBody(body)
		}
	}
}

// ReleaseResources drops every node's hold on its model and texture so the
// resource manager can evict them once their TTL runs out.
func (s *Scene) ReleaseResources() {
	s.Graph.Each(func(_ Handle, n *Node) { n.release() })
}

// Advance moves the scene forward by dt seconds for a frame of frameSize
// pixels.
func (s *Scene) Advance(frameSize mathx.Vector2, dt float32) {
	s.frameSize = frameSize
	s.elapsed += dt

	s.Physics.Step(dt)
	s.Binder.Sync(s.Physics, func(h Handle, body *physics.Body) {
		if n, ok := s.Graph.Node(h); ok {
			n.Position = body.Position
			n.Rotation = body.Rotation
		}
	})
	for _, b := range s.behaviors {
		b.Update(s, frameSize, dt)
	}
	s.Graph.UpdateTransforms()

	aspect := float32(1)
	if frameSize.Y > 0 {
		aspect = frameSize.X / frameSize.Y
	}
	s.Graph.Each(func(_ Handle, n *Node) {
		if n.Kind == KindCamera {
			n.Aspect = aspect
		}
	})
	if s.sound != nil {
		if _, cam, ok := s.Graph.ActiveCamera(); ok {
			_ = s.sound.SetListener(s.SoundContext, cam.GlobalPosition())
		}
	}
}

func (s *Scene) SceneName() string { return s.Name }

func (s *Scene) NodeCount() int { return s.Graph.Len() }

// Translate moves the index-th node by delta. Bodies bound to the node are
// moved with it.
func (s *Scene) Translate(index int, delta mathx.Vector3) bool {
	h, n, ok := s.Graph.Nth(index)
	if !ok {
		return false
	}
	n.Position = n.Position.Add(delta)
	if body, ok := s.Binder.BodyOf(h); ok {
		if b, ok := s.Physics.Body(body); ok {
			b.Position = b.Position.Add(delta)
		}
	}
	return true
}

// Resolve re-binds what Visit could not restore: the render target, node
// resources, the sound context and the behaviours. Resources must already
// be loaded.
func (s *Scene) Resolve(rc ResolveContext) error {
	if s.RenderTarget != nil && rc.Resources != nil {
		tex, ok := rc.Resources.Texture(s.RenderTarget.Path())
		if !ok {
			return fmt.Errorf("scene %s: render target %s: %w", s.Name, s.RenderTarget.Path(), ErrUnresolved)
		}
		s.RenderTarget = tex
	}

	var err error
	s.Graph.Each(func(_ Handle, n *Node) {
		if err != nil || rc.Resources == nil {
			return
		}
		n.release()
		if n.ModelPath != "" {
			m, ok := rc.Resources.Model(n.ModelPath)
			if !ok {
				err = fmt.Errorf("scene %s: node %s: model %s: %w", s.Name, n.Name, n.ModelPath, ErrUnresolved)
				return
			}
			m.Acquire()
			n.Model = m
		}
		if n.TexturePath != "" {
			t, ok := rc.Resources.Texture(n.TexturePath)
			if !ok {
				err = fmt.Errorf("scene %s: node %s: texture %s: %w", s.Name, n.Name, n.TexturePath, ErrUnresolved)
				return
			}
			t.Acquire()
			n.Texture = t
		}
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
			return fmt.Errorf("scene %s: behaviour %s: %w", s.Name, name, ErrUnresolved)
		}
		b, err := rc.Behaviors(name)
		if err != nil {
			return fmt.Errorf("scene %s: %w", s.Name, err)
		}
		s.AddBehavior(b)
	}
	return nil
}

// Visit persists the scene. Runtime references are saved by path or id and
// restored by Resolve.
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
				s.RenderTarget = placeholderTexture(target)
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

// placeholderTexture stands in for a saved render target until Resolve
// replaces it with the manager's texture of the same path.
func placeholderTexture(path string) *resource.Texture {
	return resource.Placeholder[resource.TextureData](path)
}
