// Package engine ties the frame together: it owns the renderer, the UI root,
// the resource manager, the sound engine and both scene containers, and runs
// them in a fixed order every Update.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/event"
	"github.com/framecore/framecore/internal/core/system"
	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/platform"
	"github.com/framecore/framecore/internal/render"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/scene"
	"github.com/framecore/framecore/internal/scene2d"
	"github.com/framecore/framecore/internal/scripting"
	"github.com/framecore/framecore/internal/sound"
	"github.com/framecore/framecore/internal/ui"
)

// Renderer composites scenes and UI into the platform context.
type Renderer interface {
	// UploadSender is the queue loaded textures are sent to. It changes
	// after Flush.
	UploadSender() resource.UploadSender
	RenderAndSwapBuffers(scenes *scene.Container, dc *ui.DrawingContext, scenes2d *scene2d.Container, dt float32) error
	// Flush discards GPU state that cannot be trusted across a load.
	Flush()
}

// Error is a construction failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "engine: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// uiQueue is the capacity of the UI message channel.
const uiQueue = 64

type options struct {
	renderer  Renderer
	loader    resource.Loader
	context   platform.Context
	behaviors map[string]scene.BehaviorFactory
}

type Option func(*options)

// WithRenderer replaces the headless renderer.
func WithRenderer(r Renderer) Option { return func(o *options) { o.renderer = r } }

// WithLoader replaces the manifest loader built from config.
func WithLoader(l resource.Loader) Option { return func(o *options) { o.loader = l } }

// WithContext uses ctx instead of creating a platform context.
func WithContext(ctx platform.Context) Option { return func(o *options) { o.context = ctx } }

// WithBehaviorFactory serves behaviours named "<prefix>:..." through f.
func WithBehaviorFactory(prefix string, f scene.BehaviorFactory) Option {
	return func(o *options) { o.behaviors[prefix] = f }
}

// Engine is created once at startup and driven by the caller's loop through
// Update and Render.
type Engine struct {
	log *zap.Logger

	platform  platform.Context
	renderer  Renderer
	resources *resource.Manager
	sound     *sound.Engine
	scenes    *scene.Container
	scenes2d  *scene2d.Container
	ui        *ui.UserInterface

	bus       *event.Bus
	runner    *system.Runner
	scripts   *scripting.Engine
	behaviors scene.BehaviorFactory

	windowSize mathx.Vector2
	uiTime     time.Duration
	frames     uint64
}

func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*Engine, error) {
	o := options{behaviors: map[string]scene.BehaviorFactory{"drift": scene.DriftFactory}}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := o.context
	if ctx == nil {
		c, err := platform.NewContext(cfg.Window)
		if err != nil {
			return nil, &Error{Op: "create graphics context", Err: err}
		}
		ctx = c
	}

	loader := o.loader
	if loader == nil && cfg.Resources.Manifest != "" {
		ml, err := resource.LoadManifest(cfg.Resources.Manifest, cfg.Resources.Root)
		if err != nil {
			ctx.Close()
			return nil, &Error{Op: "load resource manifest", Err: err}
		}
		log.Info("resource manifest loaded", zap.Int("entries", ml.Count()))
		loader = ml
	}

	var scripts *scripting.Engine
	if cfg.Scripting.Dir != "" {
		s, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			ctx.Close()
			return nil, &Error{Op: "load scripts", Err: err}
		}
		scripts = s
		if _, ok := o.behaviors[scripting.Prefix]; !ok {
			o.behaviors[scripting.Prefix] = s.Factory()
		}
	}

	renderer := o.renderer
	if renderer == nil {
		renderer = render.NewHeadless(ctx, cfg.Renderer, log.Named("render"))
	}

	snd := sound.NewEngine(cfg.Sound, log.Named("sound"))
	snd.Start(cfg.Sound.MixPeriod)

	e := &Engine{
		log:       log,
		platform:  ctx,
		renderer:  renderer,
		resources: resource.NewManager(cfg.Resources, loader, log.Named("resource")),
		sound:     snd,
		scenes:    scene.NewContainer(snd),
		scenes2d:  scene2d.NewContainer(snd),
		ui:        ui.New(uiQueue),
		bus:       event.NewBus(),
		runner:    system.NewRunner(),
		scripts:   scripts,
		behaviors: scene.Factories(o.behaviors),
	}
	e.resources.SetUploadSender(renderer.UploadSender())
	e.windowSize = e.readWindowSize()

	e.runner.Register(system.Func{P: system.PhaseEvents, Fn: func(float32) {
		e.bus.SwapBuffers()
		e.bus.DispatchAll()
	}})
	e.runner.Register(system.Func{P: system.PhaseResources, Fn: e.resources.Tick})
	e.runner.Register(system.Func{P: system.PhaseScenes, Fn: e.updateScenes})
	e.runner.Register(system.Func{P: system.PhaseScenes2D, Fn: e.updateScenes2D})
	e.runner.Register(system.Func{P: system.PhaseUI, Fn: e.updateUI})

	w, h := ctx.InnerSize()
	log.Info("engine ready", zap.Int("width", w), zap.Int("height", h))
	return e, nil
}

// AddSystem runs s every Update in its phase, after the engine's own work
// for that phase.
func (e *Engine) AddSystem(s system.System) { e.runner.Register(s) }

// Update advances everything by dt seconds: events from the previous frame
// are delivered, resources are ticked, enabled 3D scenes then enabled 2D
// scenes advance, and the UI advances last.
func (e *Engine) Update(dt float32) {
	e.windowSize = e.readWindowSize()
	e.runner.Tick(dt)
}

func (e *Engine) readWindowSize() mathx.Vector2 {
	w, h := e.platform.InnerSize()
	return mathx.NewVector2(float32(w), float32(h))
}

func (e *Engine) updateScenes(dt float32) {
	e.scenes.Each(func(_ scene.ContainerHandle, s *scene.Scene) {
		if s.Enabled {
			s.Advance(e.frameSize(s.Name, s.RenderTarget), dt)
		}
	})
}

func (e *Engine) updateScenes2D(dt float32) {
	e.scenes2d.Each(func(_ scene2d.ContainerHandle, s *scene2d.Scene) {
		if s.Enabled {
			s.Advance(e.frameSize(s.Name, s.RenderTarget), dt)
		}
	})
}

func (e *Engine) updateUI(dt float32) {
	start := time.Now()
	e.ui.Advance(e.windowSize, dt)
	e.uiTime = time.Since(start)
}

// frameSize is the render target's size, or the window size when the scene
// has no target or the target has no data yet. A target that is loaded but
// not a rectangle is a content bug and panics.
func (e *Engine) frameSize(sceneName string, target *resource.Texture) mathx.Vector2 {
	if target == nil {
		return e.windowSize
	}
	data, err := target.Data()
	if err != nil {
		return e.windowSize
	}
	w, h, ok := data.RectangleSize()
	if !ok {
		panic(fmt.Sprintf("scene %q: render target %q is a %s texture, only rectangle textures can be rendered into",
			sceneName, target.Path(), data.Kind))
	}
	return mathx.NewVector2(float32(w), float32(h))
}

// Render draws the UI and composites the frame. A renderer failure is
// reported on the bus and returned as is; the frame is not retried.
func (e *Engine) Render(dt float32) error {
	dc := e.ui.Draw()
	if err := e.renderer.RenderAndSwapBuffers(e.scenes, dc, e.scenes2d, dt); err != nil {
		event.Emit(e.bus, event.RenderFailed{Frame: e.frames, Err: err})
		return err
	}
	e.frames++
	return nil
}

func (e *Engine) Renderer() Renderer               { return e.renderer }
func (e *Engine) Resources() *resource.Manager     { return e.resources }
func (e *Engine) Sound() *sound.Engine             { return e.sound }
func (e *Engine) Scenes() *scene.Container         { return e.scenes }
func (e *Engine) Scenes2D() *scene2d.Container     { return e.scenes2d }
func (e *Engine) UI() *ui.UserInterface            { return e.ui }
func (e *Engine) Bus() *event.Bus                  { return e.bus }
func (e *Engine) Behaviors() scene.BehaviorFactory { return e.behaviors }
func (e *Engine) Platform() platform.Context       { return e.platform }

// UITime is how long the last UI advance took.
func (e *Engine) UITime() time.Duration { return e.uiTime }

// PhaseTime is how long phase took during the last Update.
func (e *Engine) PhaseTime(phase system.Phase) time.Duration { return e.runner.Elapsed(phase) }

// Frames counts successfully presented frames.
func (e *Engine) Frames() uint64 { return e.frames }

// WindowSize is the size read at the start of the last Update.
func (e *Engine) WindowSize() mathx.Vector2 { return e.windowSize }

// Close stops the mixer, cancels pending loads and releases the context.
func (e *Engine) Close() error {
	e.sound.Stop()
	e.resources.Close()
	if e.scripts != nil {
		e.scripts.Close()
	}
	return e.platform.Close()
}
