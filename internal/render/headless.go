// Package render holds the headless renderer: it keeps the GPU-side texture
// cache and frame bookkeeping of a real backend and presents through a
// platform context, without drawing pixels.
package render

import (
	"errors"

	"go.uber.org/zap"

	"github.com/framecore/framecore/internal/config"
	"github.com/framecore/framecore/internal/platform"
	"github.com/framecore/framecore/internal/resource"
	"github.com/framecore/framecore/internal/scene"
	"github.com/framecore/framecore/internal/scene2d"
	"github.com/framecore/framecore/internal/ui"
)

// ErrContextLost is returned when the graphics context went away mid-frame.
var ErrContextLost = errors.New("render: context lost")

// Stats describes the last presented frame.
type Stats struct {
	Frames      uint64
	Scenes      []string // composited 3D then 2D scene names
	UICommands  int
	GPUTextures int
	Uploaded    int // textures uploaded during the frame
}

// Headless implements the engine's renderer contract.
type Headless struct {
	log     *zap.Logger
	ctx     platform.Context
	queue   int
	uploads chan resource.Upload
	gpu     map[string]*resource.Texture

	stats   Stats
	failing error
}

func NewHeadless(ctx platform.Context, cfg config.RendererConfig, log *zap.Logger) *Headless {
	queue := cfg.UploadQueue
	if queue <= 0 {
		queue = 64
	}
	return &Headless{
		log:     log,
		ctx:     ctx,
		queue:   queue,
		uploads: make(chan resource.Upload, queue),
		gpu:     make(map[string]*resource.Texture),
	}
}

// UploadSender is the queue loaded textures are sent on. Flush replaces it.
func (h *Headless) UploadSender() resource.UploadSender { return h.uploads }

// FailNextFrame makes the next RenderAndSwapBuffers return err, the way a
// backend reports a lost device.
func (h *Headless) FailNextFrame(err error) { h.failing = err }

// RenderAndSwapBuffers composites enabled 3D scenes, then enabled 2D scenes,
// then the UI, and presents. Errors are returned as the backend reports them.
func (h *Headless) RenderAndSwapBuffers(scenes *scene.Container, dc *ui.DrawingContext, scenes2d *scene2d.Container, dt float32) error {
	if err := h.failing; err != nil {
		h.failing = nil
		return err
	}
	uploaded := h.drainUploads()

	names := h.stats.Scenes[:0]
	scenes.Each(func(_ scene.ContainerHandle, s *scene.Scene) {
		if s.Enabled {
			names = append(names, s.Name)
		}
	})
	scenes2d.Each(func(_ scene2d.ContainerHandle, s *scene2d.Scene) {
		if s.Enabled {
			names = append(names, s.Name)
		}
	})
	commands := 0
	if dc != nil {
		commands = len(dc.Commands)
	}

	if err := h.ctx.Present(); err != nil {
		if errors.Is(err, platform.ErrClosed) {
			return ErrContextLost
		}
		return err
	}
	h.stats.Frames++
	h.stats.Scenes = names
	h.stats.UICommands = commands
	h.stats.GPUTextures = len(h.gpu)
	h.stats.Uploaded = uploaded
	return nil
}

func (h *Headless) drainUploads() int {
	n := 0
	for {
		select {
		case up := <-h.uploads:
			h.gpu[up.Path] = up.Texture
			n++
		default:
			return n
		}
	}
}

// Flush drops every GPU texture and starts a new upload queue. Senders
// holding the old queue must be pointed at the new one.
func (h *Headless) Flush() {
	dropped := len(h.gpu)
	clear(h.gpu)
	h.uploads = make(chan resource.Upload, h.queue)
	h.log.Debug("renderer flushed", zap.Int("textures", dropped))
}

// Stats returns the bookkeeping of the last presented frame.
func (h *Headless) Stats() Stats { return h.stats }
