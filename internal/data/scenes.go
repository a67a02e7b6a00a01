// Package data loads scene descriptions from YAML and builds them into
// scene containers.
package data

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/physics"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/scene"
	"github.com/framecore/framecore/internal/scene2d"
)

// RenderTargetEntry describes a texture a scene renders into.
type RenderTargetEntry struct {
	Path   string `yaml:"path"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// BodyEntry attaches a rigid body to a node.
type BodyEntry struct {
	Kind     string    `yaml:"kind"` // dynamic (default), static, kinematic
	Mass     float32   `yaml:"mass"`
	Velocity []float32 `yaml:"velocity"`
}

// NodeEntry is one 3D node. Parent names an earlier node of the same scene.
type NodeEntry struct {
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Parent   string     `yaml:"parent"`
	Position []float32  `yaml:"position"`
	Rotation []float32  `yaml:"rotation"`
	Scale    []float32  `yaml:"scale"`
	Model    string     `yaml:"model"`
	Texture  string     `yaml:"texture"`
	Body     *BodyEntry `yaml:"body"`
}

// SceneEntry is one 3D scene. Enabled defaults to true.
type SceneEntry struct {
	Name         string             `yaml:"name"`
	Enabled      *bool              `yaml:"enabled"`
	RenderTarget *RenderTargetEntry `yaml:"render_target"`
	Nodes        []NodeEntry        `yaml:"nodes"`
	Behaviors    []string           `yaml:"behaviors"`
}

// Node2DEntry is one 2D node.
type Node2DEntry struct {
	Name     string     `yaml:"name"`
	Parent   string     `yaml:"parent"`
	Position []float32  `yaml:"position"`
	Rotation float32    `yaml:"rotation"`
	Scale    []float32  `yaml:"scale"`
	Layer    int32      `yaml:"layer"`
	Texture  string     `yaml:"texture"`
	Camera   bool       `yaml:"camera"`
	Body     *BodyEntry `yaml:"body"`
}

type Scene2DEntry struct {
	Name         string             `yaml:"name"`
	Enabled      *bool              `yaml:"enabled"`
	RenderTarget *RenderTargetEntry `yaml:"render_target"`
	Nodes        []Node2DEntry      `yaml:"nodes"`
	Behaviors    []string           `yaml:"behaviors"`
}

// SceneTable is the parsed content of a scene description file.
type SceneTable struct {
	Scenes   []SceneEntry   `yaml:"scenes"`
	Scenes2D []Scene2DEntry `yaml:"scenes2d"`
}

// LoadSceneTable loads a scene description file.
func LoadSceneTable(path string) (*SceneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene table: %w", err)
	}
	return ParseSceneTable(raw)
}

// ParseSceneTable parses and validates scene descriptions.
func ParseSceneTable(raw []byte) (*SceneTable, error) {
	var t SceneTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse scene table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Count returns the number of 3D and 2D scenes described.
func (t *SceneTable) Count() int { return len(t.Scenes) + len(t.Scenes2D) }

func (t *SceneTable) validate() error {
	var errs []error
	seen := make(map[string]bool)
	check := func(kind, name string) {
		if name == "" {
			errs = append(errs, fmt.Errorf("%s scene without a name", kind))
			return
		}
		if seen[kind+"/"+name] {
			errs = append(errs, fmt.Errorf("duplicate %s scene %q", kind, name))
		}
		seen[kind+"/"+name] = true
	}
	for _, s := range t.Scenes {
		check("3d", s.Name)
		nodes := make(map[string]bool)
		for _, n := range s.Nodes {
			errs = append(errs, checkNode(s.Name, n.Name, n.Parent, nodes)...)
			if _, err := scene.ParseNodeKind(n.Kind); err != nil {
				errs = append(errs, fmt.Errorf("scene %s node %s: %w", s.Name, n.Name, err))
			}
			for field, vec := range map[string][]float32{"position": n.Position, "rotation": n.Rotation, "scale": n.Scale} {
				if len(vec) != 0 && len(vec) != 3 {
					errs = append(errs, fmt.Errorf("scene %s node %s: %s needs 3 components, got %d", s.Name, n.Name, field, len(vec)))
				}
			}
			errs = append(errs, checkBody(s.Name, n.Name, n.Body, 3)...)
		}
	}
	for _, s := range t.Scenes2D {
		check("2d", s.Name)
		nodes := make(map[string]bool)
		for _, n := range s.Nodes {
			errs = append(errs, checkNode(s.Name, n.Name, n.Parent, nodes)...)
			for field, vec := range map[string][]float32{"position": n.Position, "scale": n.Scale} {
				if len(vec) != 0 && len(vec) != 2 {
					errs = append(errs, fmt.Errorf("scene %s node %s: %s needs 2 components, got %d", s.Name, n.Name, field, len(vec)))
				}
			}
			errs = append(errs, checkBody(s.Name, n.Name, n.Body, 2)...)
		}
	}
	return errors.Join(errs...)
}

func checkNode(sceneName, name, parent string, seen map[string]bool) []error {
	var errs []error
	switch {
	case name == "":
		errs = append(errs, fmt.Errorf("scene %s: node without a name", sceneName))
	case seen[name]:
		errs = append(errs, fmt.Errorf("scene %s: duplicate node %q", sceneName, name))
	}
	if parent != "" && !seen[parent] {
		errs = append(errs, fmt.Errorf("scene %s node %s: parent %q must be declared earlier", sceneName, name, parent))
	}
	seen[name] = true
	return errs
}

func checkBody(sceneName, node string, b *BodyEntry, dims int) []error {
	if b == nil {
		return nil
	}
	var errs []error
	if _, err := physics.ParseBodyKind(b.Kind); err != nil {
		errs = append(errs, fmt.Errorf("scene %s node %s: %w", sceneName, node, err))
	}
	if len(b.Velocity) != 0 && len(b.Velocity) != dims {
		errs = append(errs, fmt.Errorf("scene %s node %s: velocity needs %d components, got %d", sceneName, node, dims, len(b.Velocity)))
	}
	return errs
}

// Build instantiates every described scene into the containers, requesting
// the resources nodes refer to. Behaviours are created through factory,
// which may be nil only when no scene lists behaviours.
func (t *SceneTable) Build(res *resource.Manager, scenes *scene.Container, scenes2d *scene2d.Container, factory scene.BehaviorFactory) error {
	for i := range t.Scenes {
		s, err := t.Scenes[i].build(res, factory)
		if err != nil {
			return err
		}
		scenes.Add(s)
	}
	for i := range t.Scenes2D {
		s, err := t.Scenes2D[i].build(res, factory)
		if err != nil {
			return err
		}
		scenes2d.Add(s)
	}
	return nil
}

func (e *SceneEntry) build(res *resource.Manager, factory scene.BehaviorFactory) (_ *scene.Scene, err error) {
	s := scene.New(e.Name)
	defer func() {
		if err != nil {
			s.ReleaseResources()
		}
	}()
	if e.Enabled != nil {
		s.Enabled = *e.Enabled
	}
	if rt := e.RenderTarget; rt != nil {
		s.RenderTarget = res.NewRenderTarget(rt.Path, rt.Width, rt.Height)
	}

	handles := make(map[string]scene.Handle, len(e.Nodes))
	for _, ne := range e.Nodes {
		kind, err := scene.ParseNodeKind(ne.Kind)
		if err != nil {
			return nil, fmt.Errorf("scene %s node %s: %w", e.Name, ne.Name, err)
		}
		n := scene.NewNode(ne.Name, kind)
		n.Position = vec3(ne.Position, n.Position)
		n.Rotation = vec3(ne.Rotation, n.Rotation)
		n.Scale = vec3(ne.Scale, n.Scale)
		if ne.Model != "" {
			n.ModelPath = ne.Model
			n.Model = res.RequestModel(ne.Model)
			n.Model.Acquire()
		}
		if ne.Texture != "" {
			n.TexturePath = ne.Texture
			n.Texture = res.RequestTexture(ne.Texture)
			n.Texture.Acquire()
		}
		h := s.Graph.Add(n)
		handles[ne.Name] = h
		if ne.Parent != "" {
			if !s.Graph.Link(h, handles[ne.Parent]) {
				return nil, fmt.Errorf("scene %s node %s: cannot link to %s", e.Name, ne.Name, ne.Parent)
			}
		}
		if ne.Body != nil {
			body, err := ne.Body.body(vec3)
			if err != nil {
				return nil, fmt.Errorf("scene %s node %s: %w", e.Name, ne.Name, err)
			}
			s.AddBody(h, body)
		}
	}
	if err := attachBehaviors(e.Name, e.Behaviors, factory, s.AddBehavior); err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Scene2DEntry) build(res *resource.Manager, factory scene.BehaviorFactory) (_ *scene2d.Scene, err error) {
	s := scene2d.New(e.Name)
	defer func() {
		if err != nil {
			s.ReleaseResources()
		}
	}()
	if e.Enabled != nil {
		s.Enabled = *e.Enabled
	}
	if rt := e.RenderTarget; rt != nil {
		s.RenderTarget = res.NewRenderTarget(rt.Path, rt.Width, rt.Height)
	}

	handles := make(map[string]scene2d.Handle, len(e.Nodes))
	for _, ne := range e.Nodes {
		n := scene2d.NewNode(ne.Name)
		n.Position = vec2(ne.Position, n.Position)
		n.Scale = vec2(ne.Scale, n.Scale)
		n.Rotation = ne.Rotation
		n.Layer = ne.Layer
		n.Camera = ne.Camera
		if ne.Texture != "" {
			n.TexturePath = ne.Texture
			n.Texture = res.RequestTexture(ne.Texture)
			n.Texture.Acquire()
		}
		h := s.Graph.Add(n)
		handles[ne.Name] = h
		if ne.Parent != "" {
			if !s.Graph.Link(h, handles[ne.Parent]) {
				return nil, fmt.Errorf("scene %s node %s: cannot link to %s", e.Name, ne.Name, ne.Parent)
			}
		}
		if ne.Body != nil {
			body, err := ne.Body.body(func(v []float32, def mathx.Vector3) mathx.Vector3 {
				xy := vec2(v, def.XY())
				return mathx.NewVector3(xy.X, xy.Y, 0)
			})
			if err != nil {
				return nil, fmt.Errorf("scene %s node %s: %w", e.Name, ne.Name, err)
			}
			s.AddBody(h, body)
		}
	}
	if err := attachBehaviors(e.Name, e.Behaviors, factory, s.AddBehavior); err != nil {
		return nil, err
	}
	return s, nil
}

func (b *BodyEntry) body(velocity func([]float32, mathx.Vector3) mathx.Vector3) (physics.Body, error) {
	kind, err := physics.ParseBodyKind(b.Kind)
	if err != nil {
		return physics.Body{}, err
	}
	mass := b.Mass
	if mass == 0 {
		mass = 1
	}
	return physics.Body{
		Kind:           kind,
		Mass:           mass,
		LinearVelocity: velocity(b.Velocity, mathx.Vector3{}),
	}, nil
}

func attachBehaviors(sceneName string, names []string, factory scene.BehaviorFactory, add func(scene.Behavior)) error {
	for _, name := range names {
		if factory == nil {
			return fmt.Errorf("scene %s: behaviour %s: no behaviour factory", sceneName, name)
		}
		b, err := factory(name)
		if err != nil {
			return fmt.Errorf("scene %s: %w", sceneName, err)
		}
		add(b)
	}
	return nil
}

func vec3(v []float32, def mathx.Vector3) mathx.Vector3 {
	if len(v) != 3 {
		return def
	}
	return mathx.NewVector3(v[0], v[1], v[2])
}

func vec2(v []float32, def mathx.Vector2) mathx.Vector2 {
	if len(v) != 2 {
		return def
	}
	return mathx.NewVector2(v[0], v[1])
}
