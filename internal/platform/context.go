// Package platform creates the graphics context the renderer presents to.
// NewContext is the only place the engine branches on the host platform.
package platform

import "errors"

var (
	ErrInvalidSize = errors.New("platform: invalid surface size")
	ErrClosed      = errors.New("platform: context closed")
)

// Context is a presentable graphics surface.
type Context interface {
	// InnerSize is the drawable size in pixels.
	InnerSize() (width, height int)
	Present() error
	Resize(width, height int)
	Close() error
}
