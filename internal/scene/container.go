package scene

import (
	"github.com/framecore/framecore/internal/core/pool"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/sound"
)

// ContainerHandle refers to a scene in a Container.
type ContainerHandle = pool.Handle[*Scene]

// Container is the ordered set of 3D scenes. Each scene added gets its own
// context in the shared sound engine.
type Container struct {
	scenes *pool.Pool[*Scene]
	sound  *sound.Engine
}

func NewContainer(snd *sound.Engine) *Container {
	return &Container{scenes: pool.New[*Scene](), sound: snd}
}

func (c *Container) Add(s *Scene) ContainerHandle {
	if c.sound != nil {
		s.sound = c.sound
		s.SoundContext = c.sound.AddContext()
	}
	return c.scenes.Spawn(s)
}

// Remove takes the scene out and releases its sound context and node
// resources.
func (c *Container) Remove(h ContainerHandle) (*Scene, bool) {
	s, ok := c.scenes.Free(h)
	if !ok {
		return nil, false
	}
	s.ReleaseResources()
	if c.sound != nil {
		c.sound.RemoveContext(s.SoundContext)
	}
	s.sound = nil
	return s, true
}

func (c *Container) Get(h ContainerHandle) (*Scene, bool) {
	p, ok := c.scenes.Borrow(h)
	if !ok {
		return nil, false
	}
	return *p, true
}

// Find returns the first scene with the given name.
func (c *Container) Find(name string) (ContainerHandle, *Scene, bool) {
	var (
		found ContainerHandle
		scene *Scene
	)
	c.Each(func(h ContainerHandle, s *Scene) {
		if scene == nil && s.Name == name {
			found, scene = h, s
		}
	})
	return found, scene, scene != nil
}

// Each visits scenes in container order.
func (c *Container) Each(fn func(ContainerHandle, *Scene)) {
	c.scenes.Each(func(h ContainerHandle, s **Scene) { fn(h, *s) })
}

func (c *Container) Len() int { return c.scenes.Len() }

// Clear removes every scene. Handles from before stay invalid.
func (c *Container) Clear() {
	c.Each(func(_ ContainerHandle, s *Scene) {
		s.ReleaseResources()
		if c.sound != nil {
			c.sound.RemoveContext(s.SoundContext)
		}
	})
	c.scenes.Clear()
}

// Resolve resolves every scene in container order, calling done after each.
// It stops at the first failure.
func (c *Container) Resolve(rc ResolveContext, done func(*Scene)) error {
	if rc.Sound == nil {
		rc.Sound = c.sound
	}
	for _, h := range c.scenes.Handles() {
		s, _ := c.Get(h)
		if err := s.Resolve(rc); err != nil {
			return err
		}
		if done != nil {
			done(s)
		}
	}
	return nil
}

func (c *Container) Visit(name string, v *visitor.Visitor) error {
	return c.scenes.Visit(name, v, func(name string, v *visitor.Visitor, s **Scene) error {
		if *s == nil {
			*s = New("")
		}
		return (*s).Visit(name, v)
	})
}
