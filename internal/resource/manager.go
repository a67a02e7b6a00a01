package resource

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/visitor"
)

// Manager owns every loaded asset. It is safe for concurrent use: loads
// finish on their own goroutines while the frame loop calls Tick.
type Manager struct {
	log     *zap.Logger
	loader  Loader
	ttl     float32
	workers int

	mu       sync.Mutex
	clock    float32
	textures map[string]*Texture
	models   map[string]*Model
	sounds   map[string]*SoundBuffer
	targets  map[string]TextureData // render targets, created in code rather than loaded
	upload   UploadSender

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup
}

func NewManager(cfg config.ResourcesConfig, loader Loader, log *zap.Logger) *Manager {
	if loader == nil {
		loader = emptyLoader{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		log:      log,
		loader:   loader,
		ttl:      float32(cfg.TTL.Seconds()),
		workers:  workers,
		textures: make(map[string]*Texture),
		models:   make(map[string]*Model),
		sounds:   make(map[string]*SoundBuffer),
		targets:  make(map[string]TextureData),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RequestTexture returns the texture for path, starting a load if it is not
// known yet. It never blocks on the load.
func (m *Manager) RequestTexture(path string) *Texture {
	key := NormalizePath(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.textures[key]; ok {
		return t
	}
	t := newResource[TextureData](key)
	m.textures[key] = t
	m.startLoad(func(ctx context.Context) { m.loadTexture(ctx, t, 0) })
	return t
}

func (m *Manager) RequestModel(path string) *Model {
	key := NormalizePath(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.models[key]; ok {
		return r
	}
	r := newResource[ModelData](key)
	m.models[key] = r
	m.startLoad(func(ctx context.Context) { loadInto(ctx, m, r, 0, "model", m.loader.LoadModel) })
	return r
}

func (m *Manager) RequestSound(path string) *SoundBuffer {
	key := NormalizePath(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.sounds[key]; ok {
		return r
	}
	r := newResource[SoundData](key)
	m.sounds[key] = r
	m.startLoad(func(ctx context.Context) { loadInto(ctx, m, r, 0, "sound", m.loader.LoadSound) })
	return r
}

// NewRenderTarget registers a rectangle texture that scenes render into. It
// is Ok immediately and survives reloads without going through the loader.
func (m *Manager) NewRenderTarget(path string, width, height uint32) *Texture {
	return m.newTarget(path, TextureData{Kind: TextureRectangle, Width: width, Height: height})
}

// NewTarget registers a texture of any kind under path. Used by tools and
// tests that need non-rectangle targets.
func (m *Manager) NewTarget(path string, data TextureData) *Texture {
	return m.newTarget(path, data)
}

func (m *Manager) newTarget(path string, data TextureData) *Texture {
	key := NormalizePath(path)
	t := newLoaded(key, data)
	m.mu.Lock()
	m.textures[key] = t
	m.targets[key] = data
	m.mu.Unlock()
	return t
}

// Texture looks up a known texture without loading it.
func (m *Manager) Texture(path string) (*Texture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.textures[NormalizePath(path)]
	return t, ok
}

func (m *Manager) Model(path string) (*Model, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.models[NormalizePath(path)]
	return r, ok
}

func (m *Manager) Sound(path string) (*SoundBuffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sounds[NormalizePath(path)]
	return r, ok
}

// Count returns the number of registered resources of every kind.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.textures) + len(m.models) + len(m.sounds)
}

// Clock returns the seconds accumulated by Tick since the last ResetClock.
func (m *Manager) Clock() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock
}

// Tick advances the manager clock by dt seconds and drops resources that
// have had no users for longer than the configured TTL. Resources still
// loading are never dropped. Tick does not wait for anything.
func (m *Manager) Tick(dt float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock += dt
	n := tickMap(m.textures, dt, m.ttl, m.targets)
	n += tickMap(m.models, dt, m.ttl, nil)
	n += tickMap(m.sounds, dt, m.ttl, nil)
	if n > 0 {
		m.log.Debug("resources evicted", zap.Int("count", n))
	}
}

func tickMap[T any](res map[string]*Resource[T], dt, ttl float32, pinned map[string]TextureData) int {
	if ttl <= 0 {
		return 0
	}
	evicted := 0
	for key, r := range res {
		if r.Users() > 0 {
			r.idle = 0
			continue
		}
		r.idle += dt
		if r.idle <= ttl || r.State() == Pending {
			continue
		}
		if _, ok := pinned[key]; ok {
			continue
		}
		delete(res, key)
		evicted++
	}
	return evicted
}

// ResetClock sets the clock and every idle timer back to zero.
func (m *Manager) ResetClock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = 0
	for _, r := range m.textures {
		r.idle = 0
	}
	for _, r := range m.models {
		r.idle = 0
	}
	for _, r := range m.sounds {
		r.idle = 0
	}
}

// SetUploadSender points texture uploads at the renderer's current queue.
func (m *Manager) SetUploadSender(s UploadSender) {
	m.mu.Lock()
	m.upload = s
	m.mu.Unlock()
}

func (m *Manager) UploadSender() UploadSender {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upload
}

// ReloadAll puts every resource back to Pending and loads them all again,
// at most the configured number at a time. It returns once every resource is
// Ok or LoadError. Load failures are recorded on the resources; the returned
// error is only ever the context's.
func (m *Manager) ReloadAll(ctx context.Context) error {
	m.mu.Lock()
	var jobs []func(context.Context)
	for _, key := range sortedKeys(m.textures) {
		t := m.textures[key]
		gen := t.reset()
		if data, ok := m.targets[key]; ok {
			t.finish(gen, data, nil)
			continue
		}
		jobs = append(jobs, func(ctx context.Context) { m.loadTexture(ctx, t, gen) })
	}
	for _, key := range sortedKeys(m.models) {
		r := m.models[key]
		gen := r.reset()
		jobs = append(jobs, func(ctx context.Context) { loadInto(ctx, m, r, gen, "model", m.loader.LoadModel) })
	}
	for _, key := range sortedKeys(m.sounds) {
		r := m.sounds[key]
		gen := r.reset()
		jobs = append(jobs, func(ctx context.Context) { loadInto(ctx, m, r, gen, "sound", m.loader.LoadSound) })
	}
	m.mu.Unlock()

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, job := range jobs {
		g.Go(func() error {
			job(ctx)
			return nil
		})
	}
	_ = g.Wait()
	m.log.Info("resources reloaded",
		zap.Int("count", len(jobs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ctx.Err()
}

// Visit persists the registry: the paths of every texture, model and sound,
// plus the shape of each render target. Reading replaces the registry with
// Pending resources for ReloadAll to fill in.
func (m *Manager) Visit(name string, v *visitor.Visitor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return v.Region(name, func() error {
		textures := sortedKeys(m.textures)
		models := sortedKeys(m.models)
		sounds := sortedKeys(m.sounds)
		targets := make([]targetRecord, 0, len(m.targets))
		for _, key := range sortedKeys(m.targets) {
			targets = append(targets, targetRecord{path: key, data: m.targets[key]})
		}
		for _, list := range []struct {
			name  string
			paths *[]string
		}{
			{"Textures", &textures},
			{"Models", &models},
			{"Sounds", &sounds},
		} {
			if err := visitor.Slice(v, list.name, list.paths, visitPath); err != nil {
				return err
			}
		}
		if err := visitor.Slice(v, "RenderTargets", &targets, visitTarget); err != nil {
			return err
		}
		if !v.IsReading() {
			return nil
		}
		clear(m.textures)
		clear(m.models)
		clear(m.sounds)
		clear(m.targets)
		for _, p := range textures {
			m.textures[p] = newResource[TextureData](p)
		}
		for _, p := range models {
			m.models[p] = newResource[ModelData](p)
		}
		for _, p := range sounds {
			m.sounds[p] = newResource[SoundData](p)
		}
		for _, t := range targets {
			m.targets[t.path] = t.data
			if _, ok := m.textures[t.path]; !ok {
				m.textures[t.path] = newResource[TextureData](t.path)
			}
		}
		return nil
	})
}

// Close cancels background loads and waits for them to return.
func (m *Manager) Close() {
	m.cancel()
	m.loads.Wait()
}

func (m *Manager) startLoad(fn func(ctx context.Context)) {
	m.loads.Add(1)
	go func() {
		defer m.loads.Done()
		fn(m.ctx)
	}()
}

func (m *Manager) loadTexture(ctx context.Context, t *Texture, gen uint64) {
	if !loadInto(ctx, m, t, gen, "texture", m.loader.LoadTexture) || t.State() != Ok {
		return
	}
	up := m.UploadSender()
	if up == nil {
		return
	}
	select {
	case up <- Upload{Path: t.Path(), Texture: t}:
	default:
		m.log.Warn("texture upload queue full, dropped", zap.String("path", t.Path()))
	}
}

// loadInto runs one load and records the result. It reports whether the
// result was kept.
func loadInto[T any](ctx context.Context, m *Manager, r *Resource[T], gen uint64, kind string, load func(context.Context, string) (T, error)) bool {
	data, err := load(ctx, r.Path())
	if err != nil {
		m.log.Warn("resource load failed",
			zap.String("kind", kind),
			zap.String("path", r.Path()),
			zap.Error(err),
		)
	}
	return r.finish(gen, data, err)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func visitPath(name string, v *visitor.Visitor, p *string) error {
	return v.String(name, p)
}

type targetRecord struct {
	path string
	data TextureData
}

func visitTarget(name string, v *visitor.Visitor, t *targetRecord) error {
	return v.Region(name, func() error {
		kind := uint32(t.data.Kind)
		if err := v.String("Path", &t.path); err != nil {
			return err
		}
		if err := v.Uint32("Kind", &kind); err != nil {
			return err
		}
		t.data.Kind = TextureKind(kind)
		if err := v.Uint32("Width", &t.data.Width); err != nil {
			return err
		}
		if err := v.Uint32("Height", &t.data.Height); err != nil {
			return err
		}
		return v.Uint32("Depth", &t.data.Depth)
	})
}
