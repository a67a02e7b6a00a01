package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/framecore/framecore/internal/mathx"
	"github.com/framecore/framecore/internal/scene"
)

// Prefix marks behaviour names served by Lua: "lua:<function>".
const Prefix = "lua"

// Engine wraps a single gopher-lua VM running scene behaviours.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	// target is the scene of the behaviour currently running, nil otherwise.
	target scene.Target
}

// NewEngine creates a Lua engine and loads every script in scriptsDir and
// its "behaviors" subdirectory. A missing directory is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("translate", vm.NewFunction(e.luaTranslate))

	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "behaviors")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to define behaviours.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) Close() { e.vm.Close() }

// Factory returns the behaviour factory for "lua:<function>" names. The
// function must be defined when the factory is called.
func (e *Engine) Factory() scene.BehaviorFactory {
	return func(name string) (scene.Behavior, error) {
		fn, ok := strings.CutPrefix(name, Prefix+":")
		if !ok || fn == "" {
			return nil, fmt.Errorf("behaviour %q: not a lua behaviour", name)
		}
		if _, ok := e.vm.GetGlobal(fn).(*lua.LFunction); !ok {
			return nil, fmt.Errorf("behaviour %q: lua function %s not defined", name, fn)
		}
		return &behavior{engine: e, name: name, fn: fn}, nil
	}
}

// behavior calls fn(ctx) on every Advance, with ctx = {scene, width, height,
// dt, nodes}. translate(i, dx, dy, dz) moves the i-th node (1-based) for the
// duration of the call.
type behavior struct {
	engine *Engine
	name   string
	fn     string
}

func (b *behavior) Name() string { return b.name }

func (b *behavior) Update(t scene.Target, frame mathx.Vector2, dt float32) {
	e := b.engine
	fn, ok := e.vm.GetGlobal(b.fn).(*lua.LFunction)
	if !ok {
		e.log.Error("lua behaviour function missing", zap.String("fn", b.fn))
		return
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("scene", lua.LString(t.SceneName()))
	ctx.RawSetString("width", lua.LNumber(frame.X))
	ctx.RawSetString("height", lua.LNumber(frame.Y))
	ctx.RawSetString("dt", lua.LNumber(dt))
	ctx.RawSetString("nodes", lua.LNumber(t.NodeCount()))

	e.target = t
	defer func() { e.target = nil }()
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua behaviour error",
			zap.String("fn", b.fn),
			zap.String("scene", t.SceneName()),
			zap.Error(err),
		)
	}
}

func (e *Engine) luaTranslate(L *lua.LState) int {
	if e.target == nil {
		L.RaiseError("translate called outside a behaviour")
		return 0
	}
	index := L.CheckInt(1)
	delta := mathx.NewVector3(
		float32(L.CheckNumber(2)),
		float32(L.OptNumber(3, 0)),
		float32(L.OptNumber(4, 0)),
	)
	L.Push(lua.LBool(e.target.Translate(index-1, delta)))
	return 1
}
