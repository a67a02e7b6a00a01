// Package sound is the shared audio engine. A mixer goroutine advances
// playback in the background while the frame loop adds contexts and sources;
// every method takes the engine lock for exactly one operation.
package sound

import (
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/mathx"
)

var (
	ErrNoContext = errors.New("sound: no such context")
	ErrNoSource  = errors.New("sound: no such source")
)

// SourceID identifies a source within its context.
type SourceID uint64

// Source is a playing or stopped sound. Duration and Playhead are seconds.
type Source struct {
	ID       SourceID
	Buffer   string // path of the sound buffer resource
	Position mathx.Vector3
	Gain     float32
	Looping  bool
	Spatial  bool
	Duration float32
	Playhead float32
	Playing  bool
}

// ContextInfo is a snapshot of one context.
type ContextInfo struct {
	ID       uuid.UUID
	Listener mathx.Vector3
	Paused   bool
	Gain     float32
	Sources  int
}

type soundContext struct {
	id       uuid.UUID
	listener mathx.Vector3
	paused   bool
	gain     float32
	sources  map[SourceID]*Source
	nextID   SourceID
}

func newContext(id uuid.UUID) *soundContext {
	return &soundContext{id: id, gain: 1, sources: make(map[SourceID]*Source)}
}

// Engine is shared by pointer between the frame loop, the scenes and the
// mixer goroutine.
type Engine struct {
	log *zap.Logger

	mu         sync.Mutex
	masterGain float32
	contexts   map[uuid.UUID]*soundContext
	order      []uuid.UUID
	mixes      uint64

	stop chan struct{}
	done chan struct{}
}

func NewEngine(cfg config.SoundConfig, log *zap.Logger) *Engine {
	return &Engine{
		log:        log,
		masterGain: cfg.MasterGain,
		contexts:   make(map[uuid.UUID]*soundContext),
	}
}

// Start launches the mixer goroutine, mixing once per period. Calling Start
// on a running engine does nothing.
func (e *Engine) Start(period time.Duration) {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	e.mu.Lock()
	if e.stop != nil {
		e.mu.Unlock()
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	e.stop, e.done = stop, done
	e.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				e.Mix(float32(now.Sub(last).Seconds()))
				last = now
			}
		}
	}()
	e.log.Debug("sound mixer started", zap.Duration("period", period))
}

// Stop ends the mixer goroutine and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	stop, done := e.stop, e.done
	e.stop, e.done = nil, nil
	e.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	e.log.Debug("sound mixer stopped")
}

// Mix advances every playing source in every unpaused context by dt seconds.
// Finished sources stop unless they loop.
func (e *Engine) Mix(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixes++
	for _, c := range e.contexts {
		if c.paused {
			continue
		}
		for _, s := range c.sources {
			if !s.Playing {
				continue
			}
			s.Playhead += dt
			if s.Duration <= 0 || s.Playhead < s.Duration {
				continue
			}
			if s.Looping {
				s.Playhead = float32(math.Mod(float64(s.Playhead), float64(s.Duration)))
			} else {
				s.Playing = false
				s.Playhead = 0
			}
		}
	}
}

// Mixes returns how many mix passes have run.
func (e *Engine) Mixes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixes
}

func (e *Engine) MasterGain() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.masterGain
}

func (e *Engine) SetMasterGain(g float32) {
	e.mu.Lock()
	e.masterGain = g
	e.mu.Unlock()
}

// AddContext creates an empty context and returns its id.
func (e *Engine) AddContext() uuid.UUID {
	id := uuid.New()
	e.mu.Lock()
	e.addContextLocked(id)
	e.mu.Unlock()
	return id
}

// EnsureContext returns id if such a context exists, otherwise a new
// context's id. Scenes call it when re-binding after a load.
func (e *Engine) EnsureContext(id uuid.UUID) uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.contexts[id]; ok && id != uuid.Nil {
		return id
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	e.addContextLocked(id)
	return id
}

func (e *Engine) addContextLocked(id uuid.UUID) {
	e.contexts[id] = newContext(id)
	e.order = append(e.order, id)
}

func (e *Engine) RemoveContext(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.contexts[id]; !ok {
		return false
	}
	delete(e.contexts, id)
	e.order = slices.DeleteFunc(e.order, func(x uuid.UUID) bool { return x == id })
	return true
}

// Contexts returns context ids in creation order.
func (e *Engine) Contexts() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.order)
}

func (e *Engine) Context(id uuid.UUID) (ContextInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.contexts[id]
	if !ok {
		return ContextInfo{}, false
	}
	return ContextInfo{ID: c.id, Listener: c.listener, Paused: c.paused, Gain: c.gain, Sources: len(c.sources)}, true
}

func (e *Engine) SetListener(id uuid.UUID, pos mathx.Vector3) error {
	return e.withContext(id, func(c *soundContext) error {
		c.listener = pos
		return nil
	})
}

func (e *Engine) SetPaused(id uuid.UUID, paused bool) error {
	return e.withContext(id, func(c *soundContext) error {
		c.paused = paused
		return nil
	})
}

func (e *Engine) SetContextGain(id uuid.UUID, gain float32) error {
	return e.withContext(id, func(c *soundContext) error {
		c.gain = gain
		return nil
	})
}

// AddSource adds a stopped copy of s to the context and returns its id.
func (e *Engine) AddSource(id uuid.UUID, s Source) (SourceID, error) {
	var sid SourceID
	err := e.withContext(id, func(c *soundContext) error {
		c.nextID++
		sid = c.nextID
		s.ID = sid
		s.Playing = false
		c.sources[sid] = &s
		return nil
	})
	return sid, err
}

func (e *Engine) Play(id uuid.UUID, sid SourceID) error {
	return e.withSource(id, sid, func(s *Source) { s.Playing = true })
}

func (e *Engine) StopSource(id uuid.UUID, sid SourceID) error {
	return e.withSource(id, sid, func(s *Source) {
		s.Playing = false
		s.Playhead = 0
	})
}

func (e *Engine) RemoveSource(id uuid.UUID, sid SourceID) error {
	return e.withContext(id, func(c *soundContext) error {
		if _, ok := c.sources[sid]; !ok {
			return ErrNoSource
		}
		delete(c.sources, sid)
		return nil
	})
}

// Source returns a snapshot of one source.
func (e *Engine) Source(id uuid.UUID, sid SourceID) (Source, bool) {
	var out Source
	err := e.withSource(id, sid, func(s *Source) { out = *s })
	return out, err == nil
}

// Reset drops every context.
func (e *Engine) Reset() {
	e.mu.Lock()
	clear(e.contexts)
	e.order = e.order[:0]
	e.mu.Unlock()
}

func (e *Engine) withContext(id uuid.UUID, fn func(c *soundContext) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.contexts[id]
	if !ok {
		return ErrNoContext
	}
	return fn(c)
}

func (e *Engine) withSource(id uuid.UUID, sid SourceID, fn func(s *Source)) error {
	return e.withContext(id, func(c *soundContext) error {
		s, ok := c.sources[sid]
		if !ok {
			return ErrNoSource
		}
		fn(s)
		return nil
	})
}
