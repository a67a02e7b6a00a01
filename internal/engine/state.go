package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/framecore/framecore/internal/core/event"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/persist"
	"github.com/framecore/framecore/internal/scene"
	"github.com/framecore/framecore/internal/scene2d"
)

// stateRegion names the top-level region of saved state.
const stateRegion = "Engine"

// Visit writes or reads the engine state in the order ResourceManager,
// SoundEngine, Scenes, Scenes2d.
//
// Before reading, the renderer is flushed, the resource clock is reset and
// both containers are emptied. After reading, the resource manager is
// pointed at the renderer's new upload queue, Visit blocks until every
// resource has reloaded, and then every 3D scene and every 2D scene is
// resolved once, in container order.
func (e *Engine) Visit(ctx context.Context, name string, v *visitor.Visitor) error {
	reading := v.IsReading()
	if reading {
		e.renderer.Flush()
		e.resources.ResetClock()
		e.scenes.Clear()
		e.scenes2d.Clear()
	}

	if err := v.Region(name, func() error {
		if err := e.resources.Visit("ResourceManager", v); err != nil {
			return err
		}
		if err := e.sound.Visit("SoundEngine", v); err != nil {
			return err
		}
		if err := e.scenes.Visit("Scenes", v); err != nil {
			return err
		}
		return e.scenes2d.Visit("Scenes2d", v)
	}); err != nil {
		return err
	}
	if !reading {
		return nil
	}

	e.resources.SetUploadSender(e.renderer.UploadSender())
	if err := e.resources.ReloadAll(ctx); err != nil {
		return fmt.Errorf("reload resources: %w", err)
	}

	rc := scene.ResolveContext{Resources: e.resources, Sound: e.sound, Behaviors: e.behaviors}
	if err := e.scenes.Resolve(rc, func(s *scene.Scene) {
		event.Emit(e.bus, event.SceneResolved{Name: s.Name})
	}); err != nil {
		return err
	}
	return e.scenes2d.Resolve(rc, func(s *scene2d.Scene) {
		event.Emit(e.bus, event.SceneResolved{Name: s.Name, Is2D: true})
	})
}

// SaveState writes the encoded engine state to w.
func (e *Engine) SaveState(w io.Writer) error {
	v := visitor.NewWriter()
	if err := e.Visit(context.Background(), stateRegion, v); err != nil {
		return err
	}
	return v.Save(w)
}

// LoadState replaces the engine state with the one read from r.
func (e *Engine) LoadState(ctx context.Context, r io.Reader) error {
	v, err := visitor.Load(r)
	if err != nil {
		return err
	}
	return e.Visit(ctx, stateRegion, v)
}

// SaveTo saves the engine state into slot.
func (e *Engine) SaveTo(ctx context.Context, store persist.Store, slot string) error {
	var buf bytes.Buffer
	if err := e.SaveState(&buf); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := store.Save(ctx, slot, buf.Bytes()); err != nil {
		return err
	}
	event.Emit(e.bus, event.StateSaved{Slot: slot, Bytes: buf.Len()})
	e.log.Info("state saved", zap.String("slot", slot), zap.Int("bytes", buf.Len()))
	return nil
}

// LoadFrom loads the engine state saved in slot.
func (e *Engine) LoadFrom(ctx context.Context, store persist.Store, slot string) error {
	data, err := store.Load(ctx, slot)
	if err != nil {
		return err
	}
	if err := e.LoadState(ctx, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("load slot %s: %w", slot, err)
	}
	event.Emit(e.bus, event.StateLoaded{Slot: slot, Scenes: e.scenes.Len(), Scenes2D: e.scenes2d.Len()})
	e.log.Info("state loaded",
		zap.String("slot", slot),
		zap.Int("scenes", e.scenes.Len()),
		zap.Int("scenes2d", e.scenes2d.Len()),
	)
	return nil
}
