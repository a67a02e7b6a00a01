package physics

import (
	"slices"

	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
)

// Binder associates scene-graph nodes with rigid bodies. Both directions are
// kept as plain maps and every mutation goes through the methods below, which
// leave the maps exact inverses of each other on return.
type Binder[N any] struct {
	forward  map[pool.Handle[N]]RigidBodyHandle
	backward map[RigidBodyHandle]pool.Handle[N]

	// Enabled gates transform synchronisation in Sync.
	Enabled bool
}

func NewBinder[N any]() *Binder[N] {
	return &Binder[N]{
		forward:  make(map[pool.Handle[N]]RigidBodyHandle),
		backward: make(map[RigidBodyHandle]pool.Handle[N]),
		Enabled:  true,
	}
}

// Bind links node to body and returns the body node was bound to before, if
// any. The evicted body loses its backward entry. If body was bound to some
// other node, that node is unbound.
func (b *Binder[N]) Bind(node pool.Handle[N], body RigidBodyHandle) (RigidBodyHandle, bool) {
	old, had := b.forward[node]
	if had {
		delete(b.backward, old)
	}
	if prev, ok := b.backward[body]; ok && prev != node {
		delete(b.forward, prev)
	}
	b.forward[node] = body
	b.backward[body] = node
	return old, had
}

// Unbind removes node and returns the body it was bound to.
func (b *Binder[N]) Unbind(node pool.Handle[N]) (RigidBodyHandle, bool) {
	body, ok := b.forward[node]
	if !ok {
		return RigidBodyHandle{}, false
	}
	delete(b.forward, node)
	delete(b.backward, body)
	return body, true
}

// UnbindByBody removes the binding of body and returns its node, or the none
// handle when body is not bound.
func (b *Binder[N]) UnbindByBody(body RigidBodyHandle) pool.Handle[N] {
	node, ok := b.backward[body]
	if !ok {
		return pool.None[N]()
	}
	delete(b.forward, node)
	delete(b.backward, body)
	return node
}

// BodyOf returns the body bound to node.
func (b *Binder[N]) BodyOf(node pool.Handle[N]) (RigidBodyHandle, bool) {
	body, ok := b.forward[node]
	return body, ok
}

// NodeOf returns the node bound to body.
func (b *Binder[N]) NodeOf(body RigidBodyHandle) (pool.Handle[N], bool) {
	node, ok := b.backward[body]
	return node, ok
}

// Len is the number of bindings.
func (b *Binder[N]) Len() int { return len(b.forward) }

// Clear drops every binding. Enabled is left as it is.
func (b *Binder[N]) Clear() {
	clear(b.forward)
	clear(b.backward)
}

// Each calls fn for every binding in node handle order.
func (b *Binder[N]) Each(fn func(node pool.Handle[N], body RigidBodyHandle)) {
	for _, node := range b.nodes() {
		fn(node, b.forward[node])
	}
}

// Retain keeps the bindings for which keep returns true. keep may rewrite the
// body of a surviving binding. The backward map is rebuilt afterwards; if two
// survivors end up on the same body the one with the lower node handle wins.
func (b *Binder[N]) Retain(keep func(node pool.Handle[N], body *RigidBodyHandle) bool) {
	for _, node := range b.nodes() {
		body := b.forward[node]
		if keep(node, &body) {
			b.forward[node] = body
		} else {
			delete(b.forward, node)
		}
	}
	b.rebuildBackward()
}

// Sync copies the pose of every bound body into its node through apply.
// Nothing happens while the binder is disabled. Bindings to bodies the world
// no longer has are skipped.
func (b *Binder[N]) Sync(w *World, apply func(node pool.Handle[N], body *Body)) {
	if !b.Enabled || w == nil {
		return
	}
	for node, h := range b.forward {
		if body, ok := w.Body(h); ok {
			apply(node, body)
		}
	}
}

// Visit persists the binder as region name { Map, RevMap, Enabled }. Map is
// authoritative: a RevMap that is missing or is not its exact inverse is
// replaced by one derived from Map.
func (b *Binder[N]) Visit(name string, v *visitor.Visitor) error {
	return v.Region(name, func() error {
		err := visitor.Map(v, "Map", &b.forward, pool.Compare[N],
			func(name string, v *visitor.Visitor, k *pool.Handle[N]) error { return k.Visit(name, v) },
			func(name string, v *visitor.Visitor, body *RigidBodyHandle) error { return body.Visit(name, v) },
		)
		if err != nil {
			return err
		}
		err = visitor.Map(v, "RevMap", &b.backward, CompareRigidBody,
			func(name string, v *visitor.Visitor, body *RigidBodyHandle) error { return body.Visit(name, v) },
			func(name string, v *visitor.Visitor, k *pool.Handle[N]) error { return k.Visit(name, v) },
		)
		if err != nil && !v.IsReading() {
			return err
		}
		if v.IsReading() && (err != nil || !b.consistent()) {
			b.rebuildBackward()
		}
		return v.Bool("Enabled", &b.Enabled)
	})
}

// consistent reports whether backward is exactly the inverse of forward.
func (b *Binder[N]) consistent() bool {
	if len(b.backward) != len(b.forward) {
		return false
	}
	for node, body := range b.forward {
		if got, ok := b.backward[body]; !ok || got != node {
			return false
		}
	}
	return true
}

func (b *Binder[N]) rebuildBackward() {
	b.backward = make(map[RigidBodyHandle]pool.Handle[N], len(b.forward))
	for _, node := range b.nodes() {
		body := b.forward[node]
		if _, taken := b.backward[body]; taken {
			delete(b.forward, node)
			continue
		}
		b.backward[body] = node
	}
}

func (b *Binder[N]) nodes() []pool.Handle[N] {
	out := make([]pool.Handle[N], 0, len(b.forward))
	for node := range b.forward {
		out = append(out, node)
	}
	slices.SortFunc(out, pool.Compare[N])
	return out
}
