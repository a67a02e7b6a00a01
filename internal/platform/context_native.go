//go:build !js

package platform

import (
	"fmt"
	"sync"

	"github.com/framecore/framecore/internal/config"
)

// surface is an off-screen context used on every non-browser host.
type surface struct {
	mu     sync.Mutex
	width  int
	height int
	frames uint64
	closed bool
}

// NewContext builds an off-screen surface of the configured window size.
func NewContext(cfg config.WindowConfig) (Context, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Width, cfg.Height)
	}
	return &surface{width: cfg.Width, height: cfg.Height}, nil
}

func (s *surface) InnerSize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.frames++
	return nil
}

func (s *surface) Resize(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

func (s *surface) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
