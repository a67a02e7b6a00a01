// Package physics holds the association between scene-graph nodes and the
// rigid bodies of the physics engine, the engine's identifier types, and a
// small in-process rigid-body world.
package physics

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"github.com/framecore/framecore/internal/core/visitor"
)

// RigidBodyHandle identifies a rigid body in the physics engine.
type RigidBodyHandle uuid.UUID

// ColliderHandle identifies a collider in the physics engine.
type ColliderHandle uuid.UUID

// JointHandle identifies a joint in the physics engine.
type JointHandle uuid.UUID

// NewRigidBodyHandle returns a fresh random body id.
func NewRigidBodyHandle() RigidBodyHandle { return RigidBodyHandle(uuid.New()) }

// NewColliderHandle returns a fresh random collider id.
func NewColliderHandle() ColliderHandle { return ColliderHandle(uuid.New()) }

// NewJointHandle returns a fresh random joint id.
func NewJointHandle() JointHandle { return JointHandle(uuid.New()) }

// RigidBodyHandleFrom wraps an existing id.
func RigidBodyHandleFrom(id uuid.UUID) RigidBodyHandle { return RigidBodyHandle(id) }
func ColliderHandleFrom(id uuid.UUID) ColliderHandle   { return ColliderHandle(id) }
func JointHandleFrom(id uuid.UUID) JointHandle         { return JointHandle(id) }

// UUID returns the id the handle wraps.
func (h RigidBodyHandle) UUID() uuid.UUID { return uuid.UUID(h) }

// UUID returns the id the handle wraps.
func (h ColliderHandle) UUID() uuid.UUID { return uuid.UUID(h) }

// UUID returns the id the handle wraps.
func (h JointHandle) UUID() uuid.UUID { return uuid.UUID(h) }

// IsNil reports whether the handle is the zero id.
func (h RigidBodyHandle) IsNil() bool { return uuid.UUID(h) == uuid.Nil }

// IsNil reports whether the handle is the zero id.
func (h ColliderHandle) IsNil() bool { return uuid.UUID(h) == uuid.Nil }

// IsNil reports whether the handle is the zero id.
func (h JointHandle) IsNil() bool { return uuid.UUID(h) == uuid.Nil }

func (h RigidBodyHandle) String() string { return uuid.UUID(h).String() }
func (h ColliderHandle) String() string  { return uuid.UUID(h).String() }
func (h JointHandle) String() string     { return uuid.UUID(h).String() }

func (h *RigidBodyHandle) Visit(name string, v *visitor.Visitor) error {
	return visitID(name, v, (*uuid.UUID)(h))
}

func (h *ColliderHandle) Visit(name string, v *visitor.Visitor) error {
	return visitID(name, v, (*uuid.UUID)(h))
}

func (h *JointHandle) Visit(name string, v *visitor.Visitor) error {
	return visitID(name, v, (*uuid.UUID)(h))
}

// CompareRigidBody orders rigid body handles by their bytes.
func CompareRigidBody(a, b RigidBodyHandle) int {
	return bytes.Compare(a[:], b[:])
}

// LegacyID converts the old (index, generation) body handle encoding into the
// 128-bit form: both values little-endian, index first.
func LegacyID(index, generation uint64) uuid.UUID {
	var id uuid.UUID
	binary.LittleEndian.PutUint64(id[0:8], index)
	binary.LittleEndian.PutUint64(id[8:16], generation)
	return id
}

// visitID writes the id as the single field "Id". Saves made before ids
// became 128-bit carry "Index" and "Generation" instead; those are upgraded
// in memory on read and never written back.
func visitID(name string, v *visitor.Visitor, id *uuid.UUID) error {
	return v.Region(name, func() error {
		err := v.UUID("Id", id)
		if err == nil || !v.IsReading() || !errors.Is(err, visitor.ErrFieldNotFound) {
			return err
		}
		var index, generation uint64
		if err := v.Uint64("Index", &index); err != nil {
			return err
		}
		if err := v.Uint64("Generation", &generation); err != nil {
			return err
		}
		*id = LegacyID(index, generation)
		return nil
	})
}
