// Package raster turns shapes into RGB pixels: an anti-aliased signed
// distance rasterizer for rects and ellipses, Bresenham lines, and a frame
// compositor that paints a whole keyframe onto a pooled buffer.
package raster

import (
	"math"

	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/logging"
)

// Rasterizer renders single shapes. It holds no per-call state and may be
// shared between goroutines as long as each uses its own Buffer.
type Rasterizer struct {
	// AAWidth is the half-width of the anti-alias band in pixels.
	AAWidth float64
	// MinRadius is the smallest ellipse half-axis that still renders.
	MinRadius float64
}

func NewRasterizer(d config.Defaults) *Rasterizer {
	return &Rasterizer{AAWidth: d.AAWidth, MinRadius: d.MinRadius}
}

// Coverage maps a signed distance to the shape boundary (negative inside)
// to a pixel coverage in [0,1] across a band of half-width aa.
func Coverage(dist, aa float64) float64 {
	if dist >= aa {
		return 0
	}
	c := (aa - dist) / (2 * aa)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

// Render paints s into buf and returns the number of pixels written.
// Geometry outside the canvas is clipped silently.
func (r *Rasterizer) Render(buf *Buffer, s document.Shape) int {
	switch s.Type {
	case document.ShapeRect:
		return r.fill(buf, s, func(lx, ly, hw, hh float64) float64 {
			return math.Max(math.Abs(lx)-hw, math.Abs(ly)-hh)
		})
	case document.ShapeEllipse:
		hw, hh := s.Width/2, s.Height/2
		if hw < r.MinRadius || hh < r.MinRadius {
			logging.Logger().Debug("degenerate ellipse skipped", "id", s.ID, "w", s.Width, "h", s.Height)
			return 0
		}
		avg := (hw + hh) / 2
		return r.fill(buf, s, func(lx, ly, hw, hh float64) float64 {
			nx, ny := lx/hw, ly/hh
			return (math.Sqrt(nx*nx+ny*ny) - 1) * avg
		})
	case document.ShapeLine:
		return r.line(buf, s)
	}
	// text is emitted by the vector path only
	return 0
}

// fill visits the circumscribing square of s, evaluates sdf in the shape's
// unrotated frame and blends the resulting coverage.
func (r *Rasterizer) fill(buf *Buffer, s document.Shape, sdf func(lx, ly, hw, hh float64) float64) int {
	hw, hh := s.Width/2, s.Height/2
	cx, cy := s.X+hw, s.Y+hh
	half := math.Sqrt(s.Width*s.Width+s.Height*s.Height) / 2

	x0, x1 := span(cx, half, buf.Width)
	y0, y1 := span(cy, half, buf.Height)
	if x0 >= x1 || y0 >= y1 {
		return 0
	}

	rad := s.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	aa := r.AAWidth

	writes := 0
	for py := y0; py < y1; py++ {
		dy := float64(py) + 0.5 - cy
		row := py * buf.Width
		for px := x0; px < x1; px++ {
			dx := float64(px) + 0.5 - cx
			lx := dx*cos + dy*sin
			ly := -dx*sin + dy*cos

			alpha := s.Opacity * Coverage(sdf(lx, ly, hw, hh), aa)
			if buf.Blend(row+px, s.Color, alpha) {
				writes++
			}
		}
	}
	return writes
}

// span returns the clipped integer range [lo, hi) covering c±half.
func span(c, half float64, limit int) (int, int) {
	lo, hi := c-half, c+half+1
	if math.IsNaN(lo) || math.IsNaN(hi) || hi <= 0 || lo >= float64(limit) {
		return 0, 0
	}
	return int(math.Max(0, lo)), int(math.Min(float64(limit), hi))
}

// line draws an integer Bresenham walk from (X,Y) to LineEnd. Rotation is
// not applied to lines.
func (r *Rasterizer) line(buf *Buffer, s document.Shape) int {
	if s.LineEnd == nil || s.Opacity <= 0 {
		return 0
	}
	x1, y1 := int(s.X), int(s.Y)
	x2, y2 := int(s.LineEnd.X), int(s.LineEnd.Y)

	dx, dy := abs(x2-x1), abs(y2-y1)
	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}
	e := dx - dy

	writes := 0
	for x, y := x1, y1; ; {
		if x >= 0 && x < buf.Width && y >= 0 && y < buf.Height {
			if buf.Blend(y*buf.Width+x, s.Color, s.Opacity) {
				writes++
			}
		}
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x += sx
		}
		if e2 < dx {
			e += dx
			y += sy
		}
	}
	return writes
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
