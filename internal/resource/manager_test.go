package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/visitor"
)

type fakeLoader struct {
	calls atomic.Int32
	gate  chan struct{} // when non-nil, loads block until it is closed
}

func (f *fakeLoader) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeLoader) LoadTexture(ctx context.Context, p string) (TextureData, error) {
	if err := f.wait(ctx); err != nil {
		return TextureData{}, err
	}
	if p == "missing.png" {
		return TextureData{}, ErrNotFound
	}
	return TextureData{Kind: TextureRectangle, Width: 4, Height: 2}, nil
}

func (f *fakeLoader) LoadModel(ctx context.Context, p string) (ModelData, error) {
	if err := f.wait(ctx); err != nil {
		return ModelData{}, err
	}
	return ModelData{Meshes: 1}, nil
}

func (f *fakeLoader) LoadSound(ctx context.Context, p string) (SoundData, error) {
	if err := f.wait(ctx); err != nil {
		return SoundData{}, err
	}
	return SoundData{SampleRate: 44100, Channels: 2}, nil
}

func newTestManager(t *testing.T, loader Loader, ttl time.Duration) *Manager {
	t.Helper()
	m := NewManager(config.ResourcesConfig{TTL: ttl, Workers: 2}, loader, zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestRequestDeduplicatesByNormalizedPath(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, loader, 0)

	a := m.RequestTexture("textures/grass.png")
	b := m.RequestTexture(`./textures\grass.png`)
	if a != b {
		t.Fatal("equivalent paths produced different resources")
	}
	// "é" composed and decomposed.
	c := m.RequestSound("sfx/caf\u00e9.ogg")
	d := m.RequestSound("sfx/cafe\u0301.ogg")
	if c != d {
		t.Fatal("NFC and NFD paths produced different resources")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if n := loader.calls.Load(); n != 2 {
		t.Fatalf("loader called %d times, want 2", n)
	}
}

func TestRequestDoesNotBlock(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	m := newTestManager(t, loader, 0)

	tex := m.RequestTexture("a.png")
	if tex.State() != Pending {
		t.Fatalf("state = %v, want pending", tex.State())
	}
	if _, err := tex.Data(); !errors.Is(err, ErrPending) {
		t.Fatalf("Data err = %v, want ErrPending", err)
	}
	m.Tick(1)
	close(loader.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := tex.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if w, h, ok := data.RectangleSize(); !ok || w != 4 || h != 2 {
		t.Fatalf("RectangleSize = %d, %d, %v", w, h, ok)
	}
}

func TestLoadErrorIsRecorded(t *testing.T) {
	m := newTestManager(t, &fakeLoader{}, 0)
	tex := m.RequestTexture("missing.png")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := tex.Wait(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if tex.State() != LoadError {
		t.Fatalf("state = %v", tex.State())
	}
}

func TestTickEvictsIdleResources(t *testing.T) {
	m := newTestManager(t, &fakeLoader{}, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	used := m.RequestModel("used.mdl")
	idle := m.RequestModel("idle.mdl")
	target := m.NewRenderTarget("rt", 8, 8)
	used.Acquire()
	for _, r := range []*Model{used, idle} {
		if _, err := r.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}

	m.Tick(1.5)
	if _, ok := m.Model("idle.mdl"); !ok {
		t.Fatal("evicted before ttl")
	}
	m.Tick(1)
	if _, ok := m.Model("idle.mdl"); ok {
		t.Fatal("idle model not evicted")
	}
	if _, ok := m.Model("used.mdl"); !ok {
		t.Fatal("used model evicted")
	}
	if got, ok := m.Texture("rt"); !ok || got != target {
		t.Fatal("render target evicted")
	}
	if c := m.Clock(); c != 2.5 {
		t.Fatalf("Clock = %v, want 2.5", c)
	}
	m.ResetClock()
	if c := m.Clock(); c != 0 {
		t.Fatalf("Clock after reset = %v", c)
	}
}

func TestReloadAllCompletesEveryResource(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestManager(t, loader, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tex := []*Texture{m.RequestTexture("a.png"), m.RequestTexture("b.png"), m.RequestTexture("missing.png")}
	snd := m.RequestSound("s.ogg")
	rt := m.NewRenderTarget("target", 16, 9)

	if err := m.ReloadAll(ctx); err != nil {
		t.Fatal(err)
	}
	for _, r := range tex {
		if r.State() == Pending {
			t.Fatalf("%s still pending after ReloadAll", r.Path())
		}
	}
	if snd.State() != Ok {
		t.Fatalf("sound state %v", snd.State())
	}
	data, err := rt.Data()
	if err != nil || data.Width != 16 {
		t.Fatalf("render target = %+v, %v", data, err)
	}
}

func TestUploadsGoToCurrentSender(t *testing.T) {
	m := newTestManager(t, &fakeLoader{}, 0)
	ch := make(chan Upload, 4)
	m.SetUploadSender(ch)
	if m.UploadSender() == nil {
		t.Fatal("sender not stored")
	}

	m.RequestTexture("a.png")
	select {
	case up := <-ch:
		if up.Path != "a.png" {
			t.Fatalf("upload path = %q", up.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no upload queued")
	}
}

func TestVisitRebuildsRegistry(t *testing.T) {
	m := newTestManager(t, &fakeLoader{}, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.RequestTexture("a.png")
	m.RequestModel("m.mdl")
	m.NewTarget("cube", TextureData{Kind: TextureCube, Width: 4, Height: 4, Depth: 6})
	if err := m.ReloadAll(ctx); err != nil {
		t.Fatal(err)
	}

	w := visitor.NewWriter()
	if err := m.Visit("ResourceManager", w); err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}

	loaded := newTestManager(t, &fakeLoader{}, 0)
	if err := loaded.Visit("ResourceManager", r); err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("Count = %d, want 3", loaded.Count())
	}
	tex, ok := loaded.Texture("a.png")
	if !ok || tex.State() != Pending {
		t.Fatal("texture should be registered and pending after read")
	}
	if err := loaded.ReloadAll(ctx); err != nil {
		t.Fatal(err)
	}
	cube, _ := loaded.Texture("cube")
	data, err := cube.Data()
	if err != nil || data.Kind != TextureCube || data.Depth != 6 {
		t.Fatalf("cube = %+v, %v", data, err)
	}
}

func TestAcquireReleaseConcurrent(t *testing.T) {
	r := newLoaded("x", 1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Acquire()
			r.Release()
		}()
	}
	wg.Wait()
	if r.Users() != 0 {
		t.Fatalf("Users = %d", r.Users())
	}
}
