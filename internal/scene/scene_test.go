package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/physics"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/sound"
)

func TestGraphLinkAndRemove(t *testing.T) {
	g := NewGraph()
	a := g.Add(NewNode("a", KindPivot))
	b := g.Add(NewNode("b", KindMesh))
	c := g.Add(NewNode("c", KindMesh))

	if !g.Link(b, a) || !g.Link(c, b) {
		t.Fatal("Link failed")
	}
	if g.Link(a, c) {
		t.Fatal("linking a node below its own descendant must fail")
	}
	if n, _ := g.Node(c); n.Parent() != b {
		t.Fatalf("c parent = %v, want %v", n.Parent(), b)
	}

	removed := g.Remove(b)
	if len(removed) != 2 {
		t.Fatalf("removed %d nodes, want 2", len(removed))
	}
	if g.IsValid(b) || g.IsValid(c) || !g.IsValid(a) {
		t.Fatal("wrong nodes removed")
	}
	if g.Len() != 1 {
		t.Fatalf("Len = %d, want 1", g.Len())
	}
	if n, _ := g.Node(a); len(n.Children()) != 0 {
		t.Fatal("removed child still listed")
	}
	if g.Remove(g.Root()) != nil {
		t.Fatal("root removed")
	}
}

func TestUpdateTransforms(t *testing.T) {
	g := NewGraph()
	parent := NewNode("parent", KindPivot)
	parent.Position = mathx.NewVector3(10, 0, 0)
	parent.Scale = mathx.NewVector3(2, 2, 2)
	p := g.Add(parent)
	child := NewNode("child", KindMesh)
	child.Position = mathx.NewVector3(1, 0, 0)
	c := g.Add(child)
	g.Link(c, p)

	g.UpdateTransforms()
	n, _ := g.Node(c)
	if got := n.GlobalPosition(); got != mathx.NewVector3(12, 0, 0) {
		t.Fatalf("global position = %+v, want (12,0,0)", got)
	}
}

type recordBehavior struct {
	name   string
	frames []mathx.Vector2
}

func (r *recordBehavior) Name() string { return r.name }

func (r *recordBehavior) Update(t Target, frame mathx.Vector2, _ float32) {
	r.frames = append(r.frames, frame)
	t.Translate(0, mathx.NewVector3(0, 0, 1))
}

func TestAdvance(t *testing.T) {
	snd := sound.NewEngine(config.SoundConfig{MasterGain: 1}, zaptest.NewLogger(t))
	c := NewContainer(snd)
	s := New("level")
	c.Add(s)

	box := s.Graph.Add(NewNode("box", KindMesh))
	camNode := NewNode("cam", KindCamera)
	camNode.Position = mathx.NewVector3(0, 5, 0)
	cam := s.Graph.Add(camNode)
	s.Physics.Gravity = mathx.NewVector3(0, -10, 0)
	if _, ok := s.AddBody(box, physics.Body{Kind: physics.Dynamic, Mass: 1}); !ok {
		t.Fatal("AddBody failed")
	}
	rec := &recordBehavior{name: "rec"}
	s.AddBehavior(rec)

	s.Advance(mathx.NewVector2(800, 400), 0.5)

	n, _ := s.Graph.Node(box)
	// Gravity moves the body, the behaviour then nudges node 0 along Z.
	if n.Position.Y != -2.5 || n.Position.Z != 1 {
		t.Fatalf("box at %+v", n.Position)
	}
	if len(rec.frames) != 1 || rec.frames[0] != mathx.NewVector2(800, 400) {
		t.Fatalf("behaviour frames = %v", rec.frames)
	}
	cn, _ := s.Graph.Node(cam)
	if cn.Aspect != 2 {
		t.Fatalf("camera aspect = %v, want 2", cn.Aspect)
	}
	info, _ := snd.Context(s.SoundContext)
	if info.Listener != mathx.NewVector3(0, 5, 0) {
		t.Fatalf("listener = %+v", info.Listener)
	}
	if s.FrameSize() != mathx.NewVector2(800, 400) {
		t.Fatalf("FrameSize = %+v", s.FrameSize())
	}
}

func TestRemoveNodeDropsBodies(t *testing.T) {
	s := New("s")
	parent := s.Graph.Add(NewNode("p", KindPivot))
	child := s.Graph.Add(NewNode("c", KindMesh))
	s.Graph.Link(child, parent)
	s.AddBody(child, physics.Body{})

	s.RemoveNode(parent)
	if s.Physics.Len() != 0 || s.Binder.Len() != 0 {
		t.Fatalf("bodies %d bindings %d", s.Physics.Len(), s.Binder.Len())
	}
}

func TestRemovingNodesReleasesResources(t *testing.T) {
	model := resource.Placeholder[resource.ModelData]("models/crate.mdl")
	tex := resource.Placeholder[resource.TextureData]("crate.png")

	s := New("s")
	parent := s.Graph.Add(NewNode("p", KindPivot))
	n := NewNode("crate", KindMesh)
	n.Model, n.Texture = model, tex
	model.Acquire()
	tex.Acquire()
	child := s.Graph.Add(n)
	s.Graph.Link(child, parent)

	s.RemoveNode(parent)
	if model.Users() != 0 || tex.Users() != 0 {
		t.Fatalf("RemoveNode kept users: model %d texture %d", model.Users(), tex.Users())
	}

	c := NewContainer(nil)
	s = New("s")
	n = NewNode("crate", KindMesh)
	n.Model = model
	model.Acquire()
	s.Graph.Add(n)
	h := c.Add(s)
	if _, ok := c.Remove(h); !ok {
		t.Fatal("Remove failed")
	}
	if model.Users() != 0 {
		t.Fatalf("Container.Remove kept %d users", model.Users())
	}
}

func TestContainerSoundContexts(t *testing.T) {
	snd := sound.NewEngine(config.SoundConfig{}, zaptest.NewLogger(t))
	c := NewContainer(snd)
	h1 := c.Add(New("one"))
	c.Add(New("two"))
	if len(snd.Contexts()) != 2 {
		t.Fatalf("contexts = %d", len(snd.Contexts()))
	}
	if _, ok := c.Remove(h1); !ok {
		t.Fatal("Remove failed")
	}
	if len(snd.Contexts()) != 1 {
		t.Fatalf("contexts after remove = %d", len(snd.Contexts()))
	}
	if _, s, ok := c.Find("two"); !ok || s.Name != "two" {
		t.Fatal("Find failed")
	}
	c.Clear()
	if c.Len() != 0 || len(snd.Contexts()) != 0 {
		t.Fatal("Clear left scenes or contexts")
	}
}

type staticLoader struct{}

func (staticLoader) LoadTexture(context.Context, string) (resource.TextureData, error) {
	return resource.TextureData{Kind: resource.TextureRectangle, Width: 2, Height: 2}, nil
}

func (staticLoader) LoadModel(context.Context, string) (resource.ModelData, error) {
	return resource.ModelData{Meshes: 1}, nil
}

func (staticLoader) LoadSound(context.Context, string) (resource.SoundData, error) {
	return resource.SoundData{}, nil
}

func TestVisitAndResolve(t *testing.T) {
	log := zaptest.NewLogger(t)
	res := resource.NewManager(config.ResourcesConfig{Workers: 2}, staticLoader{}, log)
	defer res.Close()
	snd := sound.NewEngine(config.SoundConfig{}, log)

	c := NewContainer(snd)
	s := New("level")
	s.RenderTarget = res.NewRenderTarget("rt/level", 320, 200)
	mesh := NewNode("tree", KindMesh)
	mesh.ModelPath = "models/tree.mdl"
	mesh.Model = res.RequestModel(mesh.ModelPath)
	tree := s.Graph.Add(mesh)
	body, _ := s.AddBody(tree, physics.Body{Kind: physics.Static})
	drift, err := DriftFactory("drift:1,0,0")
	if err != nil {
		t.Fatal(err)
	}
	s.AddBehavior(drift)
	c.Add(s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := res.ReloadAll(ctx); err != nil {
		t.Fatal(err)
	}

	w := visitor.NewWriter()
	if err := c.Visit("Scenes", w); err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	loaded := NewContainer(snd)
	if err := loaded.Visit("Scenes", r); err != nil {
		t.Fatal(err)
	}

	var resolved []string
	rc := ResolveContext{
		Resources: res,
		Behaviors: Factories(map[string]BehaviorFactory{"drift": DriftFactory}),
	}
	if err := loaded.Resolve(rc, func(s *Scene) { resolved = append(resolved, s.Name) }); err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 1 || resolved[0] != "level" {
		t.Fatalf("resolved = %v", resolved)
	}

	_, got, _ := loaded.Find("level")
	if got.RenderTarget != s.RenderTarget {
		t.Fatal("render target not re-bound to the manager's texture")
	}
	n, ok := got.Graph.Node(tree)
	if !ok || n.Model == nil || n.Model.State() != resource.Ok {
		t.Fatalf("tree model not resolved: %+v", n)
	}
	if h, ok := got.Binder.NodeOf(body); !ok || h != tree {
		t.Fatal("binder lost the tree binding")
	}
	if names := got.Behaviors(); len(names) != 1 || names[0] != "drift:1,0,0" {
		t.Fatalf("behaviours = %v", names)
	}
	if got.SoundEngine() != snd || got.SoundContext != s.SoundContext {
		t.Fatal("sound context not re-bound")
	}
}

func TestResolveMissingModel(t *testing.T) {
	res := resource.NewManager(config.ResourcesConfig{}, nil, zaptest.NewLogger(t))
	defer res.Close()
	s := New("s")
	n := NewNode("n", KindMesh)
	n.ModelPath = "gone.mdl"
	s.Graph.Add(n)
	if err := s.Resolve(ResolveContext{Resources: res}); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("err = %v, want ErrUnresolved", err)
	}
}

func TestFactories(t *testing.T) {
	f := Factories(map[string]BehaviorFactory{"drift": DriftFactory})
	b, err := f("drift:0,1,0")
	if err != nil || b.(*Drift).Velocity != mathx.NewVector3(0, 1, 0) {
		t.Fatalf("drift = %v, %v", b, err)
	}
	if _, err := f("lua:spin"); err == nil {
		t.Fatal("unknown prefix accepted")
	}
	if _, err := f("drift:x"); err == nil {
		t.Fatal("malformed drift velocity accepted")
	}
}
