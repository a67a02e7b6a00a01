// Package resource is the engine's asset store. Assets load on goroutines
// while the frame loop keeps running; callers hold *Resource values that
// become usable once their load finishes.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrPending is returned by Data while a load is still running.
var ErrPending = errors.New("resource: not loaded yet")

// State is the load state of a resource.
type State int32

const (
	Pending State = iota
	Ok
	LoadError
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ok:
		return "ok"
	case LoadError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Resource is one asset of payload type T.
type Resource[T any] struct {
	path string

	mu    sync.Mutex
	state State
	data  T
	err   error
	done  chan struct{}
	gen   uint64 // bumped by reset; stale finishes are dropped

	users atomic.Int32
	idle  float32 // seconds without users, owned by the Manager
}

func newResource[T any](path string) *Resource[T] {
	return &Resource[T]{path: path, done: make(chan struct{})}
}

// newLoaded returns a resource that is already Ok.
func newLoaded[T any](path string, data T) *Resource[T] {
	r := newResource[T](path)
	r.finish(0, data, nil)
	return r
}

func (r *Resource[T]) Path() string { return r.path }

func (r *Resource[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Data returns the payload without blocking.
func (r *Resource[T]) Data() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case Ok:
		return r.data, nil
	case LoadError:
		var zero T
		return zero, r.err
	default:
		var zero T
		return zero, ErrPending
	}
}

// Wait blocks until the current load finishes or ctx is done.
func (r *Resource[T]) Wait(ctx context.Context) (T, error) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	select {
	case <-done:
		return r.Data()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Acquire marks the resource as used, protecting it from eviction.
func (r *Resource[T]) Acquire() { r.users.Add(1) }

// Release drops one use taken by Acquire.
func (r *Resource[T]) Release() {
	if r.users.Add(-1) < 0 {
		r.users.Store(0)
	}
}

func (r *Resource[T]) Users() int { return int(r.users.Load()) }

// reset puts the resource back to Pending and returns the load generation the
// next finish must carry.
func (r *Resource[T]) reset() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Pending {
		r.done = make(chan struct{})
	}
	r.state = Pending
	r.err = nil
	r.gen++
	return r.gen
}

// finish completes the load started at generation gen. It reports false when
// a newer reset superseded that load.
func (r *Resource[T]) finish(gen uint64, data T, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || r.state != Pending {
		return false
	}
	if err != nil {
		r.state, r.err = LoadError, err
	} else {
		r.state, r.data = Ok, data
	}
	close(r.done)
	return true
}

// Placeholder returns a Pending resource that no manager tracks. It only
// carries a path, for state that is read before the real resource exists.
func Placeholder[T any](path string) *Resource[T] {
	return newResource[T](NormalizePath(path))
}
