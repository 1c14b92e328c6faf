package raster

import (
	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/logging"
)

// Compositor paints whole frames: background, pixel overlay, then shapes
// in array order so later shapes cover earlier ones.
type Compositor struct {
	Width      int
	Height     int
	Background document.RGB

	raster *Rasterizer
	pool   *Pool
}

func NewCompositor(width, height int, d config.Defaults) *Compositor {
	return &Compositor{
		Width:      width,
		Height:     height,
		Background: document.RGB(d.Background),
		raster:     NewRasterizer(d),
		pool:       globalPool,
	}
}

// Compose renders f into buf, which must match the compositor size.
// It returns the number of pixel writes made by shapes.
func (c *Compositor) Compose(buf *Buffer, f document.Frame) int {
	buf.Fill(c.Background)
	for _, p := range f.Pixels {
		buf.Set(p.Index, p.Color)
	}

	writes := 0
	for _, s := range f.Shapes {
		writes += c.raster.Render(buf, s)
	}
	return writes
}

// Render composes f into a pooled buffer and hands it to use. The buffer
// goes back to the pool when use returns, so use must not retain it.
func (c *Compositor) Render(f document.Frame, use func(*Buffer) error) error {
	buf := c.pool.Get(c.Width, c.Height)
	defer c.pool.Put(buf)

	writes := c.Compose(buf, f)
	logging.Logger().Debug("frame composed", "shapes", len(f.Shapes), "pixels", len(f.Pixels), "writes", writes)
	return use(buf)
}
