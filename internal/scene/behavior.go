package scene

import (
	"fmt"
	"strings"

	"github.com/framecore/framecore/internal/mathx"
)

// Target is the view of a scene a behaviour works on. Nodes are addressed by
// their position in graph order.
type Target interface {
	SceneName() string
	NodeCount() int
	Translate(index int, delta mathx.Vector3) bool
}

// Behavior is per-frame logic attached to a scene. Only its name is saved;
// Resolve rebuilds it through a BehaviorFactory.
type Behavior interface {
	Name() string
	Update(t Target, frameSize mathx.Vector2, dt float32)
}

// BehaviorFactory builds the behaviour registered under name.
type BehaviorFactory func(name string) (Behavior, error)

// Factories combines factories by name prefix. The prefix is everything
// before the first ':'; names without one use the "" entry.
func Factories(byPrefix map[string]BehaviorFactory) BehaviorFactory {
	return func(name string) (Behavior, error) {
		prefix := ""
		if i := strings.IndexByte(name, ':'); i >= 0 {
			prefix = name[:i]
		}
		f, ok := byPrefix[prefix]
		if !ok {
			return nil, fmt.Errorf("no behaviour factory for %q", name)
		}
		return f(name)
	}
}

// Drift moves every node at a constant velocity. It is registered as
// "drift:x,y,z".
type Drift struct {
	name     string
	Velocity mathx.Vector3
}

// DriftFactory parses "drift:x,y,z".
func DriftFactory(name string) (Behavior, error) {
	var v mathx.Vector3
	args := strings.TrimPrefix(name, "drift:")
	if _, err := fmt.Sscanf(args, "%g,%g,%g", &v.X, &v.Y, &v.Z); err != nil {
		return nil, fmt.Errorf("behaviour %q: %w", name, err)
	}
	return &Drift{name: name, Velocity: v}, nil
}

func (d *Drift) Name() string { return d.name }

func (d *Drift) Update(t Target, _ mathx.Vector2, dt float32) {
	step := d.Velocity.Scale(dt)
	for i := 0; i < t.NodeCount(); i++ {
		t.Translate(i, step)
	}
}
