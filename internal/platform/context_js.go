//go:build js && wasm

package platform

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/framecore/framecore/internal/config"
)

// canvas presents through a WebGL2 context on an HTML canvas. The browser
// composites the canvas itself, so Present only validates the context.
type canvas struct {
	el     js.Value
	gl     js.Value
	closed bool
}

// NewContext finds the canvas with the configured id, creating and appending
// one to the document body if there is none.
func NewContext(cfg config.WindowConfig) (Context, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Width, cfg.Height)
	}
	doc := js.Global().Get("document")
	if !doc.Truthy() {
		return nil, errors.New("platform: no document")
	}
	el := doc.Call("getElementById", cfg.CanvasID)
	if !el.Truthy() {
		el = doc.Call("createElement", "canvas")
		el.Set("id", cfg.CanvasID)
		doc.Get("body").Call("appendChild", el)
	}
	el.Set("width", cfg.Width)
	el.Set("height", cfg.Height)
	gl := el.Call("getContext", "webgl2")
	if !gl.Truthy() {
		return nil, errors.New("platform: webgl2 unavailable")
	}
	return &canvas{el: el, gl: gl}, nil
}

func (c *canvas) InnerSize() (int, int) {
	return c.el.Get("width").Int(), c.el.Get("height").Int()
}

func (c *canvas) Present() error {
	if c.closed || c.gl.Call("isContextLost").Bool() {
		return ErrClosed
	}
	return nil
}

func (c *canvas) Resize(width, height int) {
	c.el.Set("width", width)
	c.el.Set("height", height)
}

func (c *canvas) Close() error {
	c.closed = true
	return nil
}
