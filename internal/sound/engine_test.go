package sound

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/core/visitor"
	"github.com/framecore/framecore/internal/mathx"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(config.SoundConfig{MasterGain: 0.8}, zaptest.NewLogger(t))
}

func TestMixAdvancesPlayback(t *testing.T) {
	e := newTestEngine(t)
	ctx := e.AddContext()
	once, _ := e.AddSource(ctx, Source{Buffer: "a.ogg", Duration: 1})
	loop, _ := e.AddSource(ctx, Source{Buffer: "b.ogg", Duration: 1, Looping: true})
	idle, _ := e.AddSource(ctx, Source{Buffer: "c.ogg", Duration: 1})
	for _, id := range []SourceID{once, loop} {
		if err := e.Play(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	e.Mix(0.75)
	e.Mix(0.5)

	if s, _ := e.Source(ctx, once); s.Playing || s.Playhead != 0 {
		t.Fatalf("one-shot = %+v, want stopped", s)
	}
	if s, _ := e.Source(ctx, loop); !s.Playing || s.Playhead != 0.25 {
		t.Fatalf("looping = %+v", s)
	}
	if s, _ := e.Source(ctx, idle); s.Playhead != 0 {
		t.Fatalf("stopped source advanced: %+v", s)
	}
}

func TestPausedContextDoesNotAdvance(t *testing.T) {
	e := newTestEngine(t)
	ctx := e.AddContext()
	id, _ := e.AddSource(ctx, Source{Duration: 10})
	_ = e.Play(ctx, id)
	_ = e.SetPaused(ctx, true)
	e.Mix(1)
	if s, _ := e.Source(ctx, id); s.Playhead != 0 {
		t.Fatalf("playhead = %v", s.Playhead)
	}
}

func TestUnknownIDs(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddSource(uuid.New(), Source{}); !errors.Is(err, ErrNoContext) {
		t.Fatalf("err = %v", err)
	}
	ctx := e.AddContext()
	if err := e.Play(ctx, 99); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v", err)
	}
	if !e.RemoveContext(ctx) || e.RemoveContext(ctx) {
		t.Fatal("RemoveContext result wrong")
	}
}

func TestEnsureContext(t *testing.T) {
	e := newTestEngine(t)
	existing := e.AddContext()
	if got := e.EnsureContext(existing); got != existing {
		t.Fatal("existing context replaced")
	}
	missing := uuid.New()
	if got := e.EnsureContext(missing); got != missing {
		t.Fatal("missing context should be created with the requested id")
	}
	if got := e.EnsureContext(uuid.Nil); got == uuid.Nil {
		t.Fatal("nil id must get a fresh context")
	}
	if n := len(e.Contexts()); n != 3 {
		t.Fatalf("contexts = %d", n)
	}
}

func TestMixerGoroutineSharesEngine(t *testing.T) {
	e := newTestEngine(t)
	e.Start(time.Millisecond)
	defer e.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ctx := e.AddContext()
				id, _ := e.AddSource(ctx, Source{Duration: 0.01})
				_ = e.Play(ctx, id)
				_ = e.SetListener(ctx, mathx.NewVector3(1, 2, 3))
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for e.Mixes() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if e.Mixes() == 0 {
		t.Fatal("mixer never ran")
	}
	e.Stop()
	e.Stop()
}

func TestVisitRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := e.AddContext()
	_ = e.SetListener(ctx, mathx.NewVector3(1, 0, -1))
	id, _ := e.AddSource(ctx, Source{Buffer: "wind.ogg", Gain: 0.5, Duration: 3, Looping: true})
	_ = e.Play(ctx, id)
	e.Mix(1)

	w := visitor.NewWriter()
	if err := e.Visit("SoundEngine", w); err != nil {
		t.Fatal(err)
	}
	r, err := visitor.NewReader(w.Encode())
	if err != nil {
		t.Fatal(err)
	}
	loaded := newTestEngine(t)
	loaded.AddContext()
	if err := loaded.Visit("SoundEngine", r); err != nil {
		t.Fatal(err)
	}

	ids := loaded.Contexts()
	if len(ids) != 1 || ids[0] != ctx {
		t.Fatalf("contexts = %v, want [%v]", ids, ctx)
	}
	info, _ := loaded.Context(ctx)
	if info.Listener != mathx.NewVector3(1, 0, -1) || info.Sources != 1 {
		t.Fatalf("context = %+v", info)
	}
	s, ok := loaded.Source(ctx, id)
	if !ok || s.Buffer != "wind.ogg" || s.Playhead != 1 || !s.Playing {
		t.Fatalf("source = %+v, %v", s, ok)
	}
	next, _ := loaded.AddSource(ctx, Source{})
	if next == id {
		t.Fatal("source ids reused after load")
	}
	if loaded.MasterGain() != 0.8 {
		t.Fatalf("MasterGain = %v", loaded.MasterGain())
	}
}
