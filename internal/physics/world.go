package physics

import (
	"bytes"
	"fmt"

	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
)

// BodyKind selects how a body takes part in simulation.
type BodyKind uint32

const (
	Dynamic BodyKind = iota
	Static
	Kinematic
)

func (k BodyKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	default:
		return "unknown"
	}
}

// ParseBodyKind accepts the names produced by BodyKind.String.
func ParseBodyKind(s string) (BodyKind, error) {
	switch s {
	case "", "dynamic":
		return Dynamic, nil
	case "static":
		return Static, nil
	case "kinematic":
		return Kinematic, nil
	}
	return 0, fmt.Errorf("unknown body kind %q", s)
}

// Body is a rigid body. Rotation is in Euler degrees.
type Body struct {
	Kind            BodyKind
	Mass            float32
	Position        mathx.Vector3
	Rotation        mathx.Vector3
	LinearVelocity  mathx.Vector3
	AngularVelocity mathx.Vector3
	Collider        ColliderHandle
}

func (b *Body) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		kind := uint32(b.Kind)
		if err := v.Uint32("Kind", &kind); err != nil {
			return err
		}
		b.Kind = BodyKind(kind)
		if err := v.Float32("Mass", &b.Mass); err != nil {
			return err
		}
		for _, f := range []struct {
			name string
			vec  *mathx.Vector3
		}{
			{"Position", &b.Position},
			{"Rotation", &b.Rotation},
			{"LinearVelocity", &b.LinearVelocity},
			{"AngularVelocity", &b.AngularVelocity},
		} {
			if err := f.vec.Visit(f.name, v); err != nil {
				return err
			}
		}
		return b.Collider.Visit("Collider", v)
	})
}

// Joint connects two bodies.
type Joint struct {
	A, B RigidBodyHandle
}

func (j *Joint) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := j.A.Visit("A", v); err != nil {
			return err
		}
		return j.B.Visit("B", v)
	})
}

// World is a small rigid-body simulation. It integrates dynamic bodies under
// gravity and leaves static and kinematic bodies where they are put.
type World struct {
	Gravity mathx.Vector3

	bodies map[RigidBodyHandle]*Body
	joints map[JointHandle]Joint
}

func NewWorld() *World {
	return &World{
		Gravity: mathx.NewVector3(0, -9.81, 0),
		bodies:  make(map[RigidBodyHandle]*Body),
		joints:  make(map[JointHandle]Joint),
	}
}

// AddBody inserts a copy of b and returns its new handle. A collider handle is
// allocated if b has none.
func (w *World) AddBody(b Body) RigidBodyHandle {
	h := NewRigidBodyHandle()
	if b.Collider.IsNil() {
		b.Collider = NewColliderHandle()
	}
	w.bodies[h] = &b
	return h
}

// RemoveBody deletes the body and every joint attached to it.
func (w *World) RemoveBody(h RigidBodyHandle) bool {
	if _, ok := w.bodies[h]; !ok {
		return false
	}
	delete(w.bodies, h)
	for jh, j := range w.joints {
		if j.A == h || j.B == h {
			delete(w.joints, jh)
		}
	}
	return true
}

// Body returns the live body for h. The pointer stays valid until RemoveBody.
func (w *World) Body(h RigidBodyHandle) (*Body, bool) {
	b, ok := w.bodies[h]
	return b, ok
}

func (w *World) Len() int { return len(w.bodies) }

// AddJoint connects a and b. Both bodies must exist.
func (w *World) AddJoint(a, b RigidBodyHandle) (JointHandle, bool) {
	if _, ok := w.bodies[a]; !ok {
		return JointHandle{}, false
	}
	if _, ok := w.bodies[b]; !ok {
		return JointHandle{}, false
	}
	h := NewJointHandle()
	w.joints[h] = Joint{A: a, B: b}
	return h, true
}

func (w *World) Joint(h JointHandle) (Joint, bool) {
	j, ok := w.joints[h]
	return j, ok
}

func (w *World) JointCount() int { return len(w.joints) }

// Step advances the simulation by dt seconds.
func (w *World) Step(dt float32) {
	if dt <= 0 {
		return
	}
	for _, b := range w.bodies {
		if b.Kind != Dynamic {
			continue
		}
		b.LinearVelocity = b.LinearVelocity.Add(w.Gravity.Scale(dt))
		b.Position = b.Position.Add(b.LinearVelocity.Scale(dt))
		b.Rotation = b.Rotation.Add(b.AngularVelocity.Scale(dt))
	}
}

// Visit persists gravity, bodies and joints. Bodies and joints are written in
// handle order.
func (w *World) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		if err := w.Gravity.Visit("Gravity", v); err != nil {
			return err
		}
		err := visitor.Map(v, "Bodies", &w.bodies, CompareRigidBody,
			func(name string, v *visitor.Visitor, h *RigidBodyHandle) error { return h.Visit(name, v) },
			func(name string, v *visitor.Visitor, b **Body) error {
				if *b == nil {
					*b = new(Body)
				}
				return (*b).Visit(name, v)
			},
		)
		if err != nil {
			return err
		}
		return visitor.Map(v, "Joints", &w.joints,
			func(a, b JointHandle) int { return bytes.Compare(a[:], b[:]) },
			func(name string, v *visitor.Visitor, h *JointHandle) error { return h.Visit(name, v) },
			func(name string, v *visitor.Visitor, j *Joint) error { return j.Visit(name, v) },
		)
	})
}
